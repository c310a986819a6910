package metrics

import (
	"strconv"

	"codeberg.org/mutker/fx5204ps/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fx5204ps"

const (
	statInstant = "instant"
	statAverage = "average"
	statMaximum = "maximum"
)

// collector reads the monitor on every scrape. The readers never block on
// device I/O, so a scrape costs a few mutex acquisitions.
type collector struct {
	reader      telemetry.Reader
	temperature bool

	powerDesc       *prometheus.Desc
	voltageDesc     *prometheus.Desc
	frequencyDesc   *prometheus.Desc
	temperatureDesc *prometheus.Desc
	infoDesc        *prometheus.Desc
}

func newCollector(reader telemetry.Reader, temperature bool) *collector {
	return &collector{
		reader:      reader,
		temperature: temperature,
		powerDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "power", "watts"),
			"Power draw per channel in watts",
			[]string{"channel", "stat"},
			nil,
		),
		voltageDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "voltage_volts"),
			"Line voltage in volts",
			nil, nil,
		),
		frequencyDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "frequency_hertz"),
			"Line frequency in hertz, 0 without signal",
			nil, nil,
		),
		temperatureDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "temperature_celsius"),
			"Device temperature in degrees Celsius",
			nil, nil,
		),
		infoDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "device", "info"),
			"Device identity, always 1",
			[]string{"firmware", "serial"},
			nil,
		),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.powerDesc
	ch <- c.voltageDesc
	ch <- c.frequencyDesc
	if c.temperature {
		ch <- c.temperatureDesc
	}
	ch <- c.infoDesc
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	stats := []struct {
		name  string
		watts telemetry.Watts
	}{
		{statInstant, c.reader.Wattage()},
		{statAverage, c.reader.WattageAvg()},
		{statMaximum, c.reader.WattageMax()},
	}
	for _, s := range stats {
		for i, w := range s.watts {
			ch <- prometheus.MustNewConstMetric(
				c.powerDesc,
				prometheus.GaugeValue,
				w,
				strconv.Itoa(i), s.name,
			)
		}
	}

	ch <- prometheus.MustNewConstMetric(c.voltageDesc, prometheus.GaugeValue, c.reader.Voltage())
	ch <- prometheus.MustNewConstMetric(c.frequencyDesc, prometheus.GaugeValue, c.reader.Frequency())
	if c.temperature {
		ch <- prometheus.MustNewConstMetric(c.temperatureDesc, prometheus.GaugeValue, c.reader.Temperature())
	}

	ch <- prometheus.MustNewConstMetric(
		c.infoDesc,
		prometheus.GaugeValue,
		1,
		c.reader.FirmwareVersion().String(), strconv.Itoa(c.reader.SerialNumber()),
	)
}
