package api

import (
	"bytes"
	"net/http"
	"strconv"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/painless-params/painless/server/internal/store"
)

// Exposed metric names.
const (
	metricParameters     = "painless_parameters"
	metricParameterValue = "painless_parameter_value"
	metricClients        = "painless_realtime_clients"
)

// metrics returns GET /metrics: parameter count, numeric parameter values
// and connected realtime clients in the Prometheus text format.
func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	params, err := h.store.List()
	if err != nil {
		storeErr(w, err)
		return
	}

	clients := -1
	if h.hub != nil {
		clients = h.hub.Count()
	}

	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, format)
	for _, mf := range buildFamilies(params, clients) {
		if err := enc.Encode(mf); err != nil {
			jsonErr(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	w.Header().Set("Content-Type", string(format))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck
}

// buildFamilies converts the parameter list into metric families. Values
// that are neither numbers nor booleans are skipped. A negative clients
// count omits the realtime gauge.
func buildFamilies(params []store.Parameter, clients int) []*dto.MetricFamily {
	out := []*dto.MetricFamily{
		gaugeFamily(metricParameters, "Number of parameter files in the base directory.",
			&dto.Metric{Gauge: &dto.Gauge{Value: ptr(float64(len(params)))}}),
	}

	var values []*dto.Metric
	for _, p := range params {
		v, ok := numericValue(p.Value)
		if !ok {
			continue
		}
		values = append(values, &dto.Metric{
			Label: []*dto.LabelPair{{Name: ptr("name"), Value: ptr(p.Name)}},
			Gauge: &dto.Gauge{Value: ptr(v)},
		})
	}
	if len(values) > 0 {
		out = append(out, gaugeFamily(metricParameterValue,
			"Current value of parameters holding a number or boolean.", values...))
	}

	if clients >= 0 {
		out = append(out, gaugeFamily(metricClients, "Connected realtime clients.",
			&dto.Metric{Gauge: &dto.Gauge{Value: ptr(float64(clients))}}))
	}
	return out
}

func gaugeFamily(name, help string, metrics ...*dto.Metric) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   ptr(name),
		Help:   ptr(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: metrics,
	}
}

// numericValue parses a parameter value as float64. "true" and "false"
// map to 1 and 0.
func numericValue(s string) (float64, bool) {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}
	switch s {
	case "true":
		return 1, true
	case "false":
		return 0, true
	}
	return 0, false
}

func ptr[T any](v T) *T { return &v }
