package calib

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"sort"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/mvakit/mvakit/internal/curve"
)

const fetchTimeout = 10 * time.Second

// PromRef points at a histogram metric in a Prometheus text exposition,
// read from a local file or fetched from an HTTP endpoint.
type PromRef struct {
	// File is the path of a text exposition file. Mutually exclusive with URL.
	File string `yaml:"file"`

	// URL is the metrics endpoint to fetch the exposition from.
	URL string `yaml:"url"`

	// Metric is the histogram metric family name to import.
	Metric string `yaml:"metric"`

	// Auth configures how the fetch authenticates to the endpoint.
	Auth Auth `yaml:"auth"`

	// TLS holds optional TLS dial options for the fetch.
	TLS TLS `yaml:"tls"`
}

// Auth specifies the authentication mode for a Prometheus import fetch.
// Secrets are resolved from the environment, never stored in calibration
// files.
type Auth struct {
	// Mode is one of: mtls | apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	// API key fields — used when Mode == "apikey".
	Header string `yaml:"header"`
	KeyEnv string `yaml:"key_env"`

	// Bearer token fields — used when Mode == "bearer".
	TokenEnv string `yaml:"token_env"`

	// Basic auth fields — used when Mode == "basic".
	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`

	// mTLS fields — used when Mode == "mtls".
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`
}

// Key returns the API key resolved from the environment.
func (a Auth) Key() string { return os.Getenv(a.KeyEnv) }

// Token returns the bearer token resolved from the environment.
func (a Auth) Token() string { return os.Getenv(a.TokenEnv) }

// Password returns the basic-auth password resolved from the environment.
func (a Auth) Password() string { return os.Getenv(a.PasswordEnv) }

// TLS holds optional TLS settings for a Prometheus import fetch.
type TLS struct {
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// Import resolves the reference into a calibration histogram: the metric's
// finite bucket bounds give the value range, per-bucket counts give the bin
// contents, the first bucket becomes the underflow entry and everything
// above the last finite bound becomes the overflow entry.
func (p *PromRef) Import() (*curve.Histogram, error) {
	if p.Metric == "" {
		return nil, fmt.Errorf("prom import: metric name is required")
	}

	var (
		mfs map[string]*dto.MetricFamily
		err error
	)
	switch {
	case p.File != "" && p.URL != "":
		return nil, fmt.Errorf("prom import: file and url are mutually exclusive")
	case p.File != "":
		mfs, err = p.readFile()
	case p.URL != "":
		mfs, err = p.fetch()
	default:
		return nil, fmt.Errorf("prom import: one of file or url is required")
	}
	if err != nil {
		return nil, err
	}

	mf, ok := mfs[p.Metric]
	if !ok {
		return nil, fmt.Errorf("prom import: metric %q not found", p.Metric)
	}
	return fromFamily(mf)
}

func (p *PromRef) readFile() (map[string]*dto.MetricFamily, error) {
	f, err := os.Open(p.File)
	if err != nil {
		return nil, fmt.Errorf("prom import: open %q: %w", p.File, err)
	}
	defer f.Close()
	return parseFamilies(f)
}

func (p *PromRef) fetch() (map[string]*dto.MetricFamily, error) {
	client, err := buildHTTPClient(p.Auth, p.TLS)
	if err != nil {
		return nil, fmt.Errorf("prom import: build http client: %w", err)
	}

	req, err := http.NewRequest(http.MethodGet, p.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("prom import: build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prom import: http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prom import: unexpected status %d from %q", resp.StatusCode, p.URL)
	}
	return parseFamilies(resp.Body)
}

// parseFamilies decodes a Prometheus text exposition into metric families.
// A partial result with a non-fatal parse warning is still returned
// successfully.
func parseFamilies(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("prom import: parse text exposition: %w", err)
	}
	return mfs, nil
}

// fromFamily converts the first histogram metric of a family into a
// calibration histogram. Bucket bounds must be uniformly spaced, since the
// calibration model assumes equal-width bins.
func fromFamily(mf *dto.MetricFamily) (*curve.Histogram, error) {
	name := mf.GetName()
	if mf.GetType() != dto.MetricType_HISTOGRAM || len(mf.Metric) == 0 {
		return nil, fmt.Errorf("prom import: metric %q is not a histogram", name)
	}
	h := mf.Metric[0].GetHistogram()
	if h == nil {
		return nil, fmt.Errorf("prom import: metric %q has no histogram data", name)
	}

	// Collect finite bucket bounds with their cumulative counts, ascending.
	type bucket struct {
		bound float64
		cum   float64
	}
	var bs []bucket
	for _, b := range h.Bucket {
		if math.IsInf(b.GetUpperBound(), +1) {
			continue
		}
		bs = append(bs, bucket{bound: b.GetUpperBound(), cum: float64(b.GetCumulativeCount())})
	}
	sort.Slice(bs, func(i, j int) bool { return bs[i].bound < bs[j].bound })

	if len(bs) < 2 {
		return nil, fmt.Errorf("prom import: metric %q needs at least two finite bucket bounds", name)
	}

	span := bs[len(bs)-1].bound - bs[0].bound
	step := span / float64(len(bs)-1)
	for i := 1; i < len(bs); i++ {
		if math.Abs((bs[i].bound-bs[i-1].bound)-step) > 1e-6*math.Abs(step) {
			return nil, fmt.Errorf("prom import: metric %q has non-uniform bucket bounds", name)
		}
	}

	// The first bucket (everything at or below the lowest bound) is the
	// underflow entry; counts above the last finite bound are the overflow.
	values := make([]float64, 0, len(bs)+1)
	values = append(values, bs[0].cum)
	for i := 1; i < len(bs); i++ {
		values = append(values, bs[i].cum-bs[i-1].cum)
	}
	values = append(values, float64(h.GetSampleCount())-bs[len(bs)-1].cum)

	return curve.NewHistogram(bs[0].bound, bs[len(bs)-1].bound, values)
}
