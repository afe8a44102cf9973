package supabase

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/vietddude/tema/internal/core/domain"
	"github.com/vietddude/tema/internal/infra/httpx"
)

// Config holds backend settings.
type Config struct {
	URL        string        `yaml:"url"`
	ServiceKey string        `yaml:"service_key"`
	Timeout    time.Duration `yaml:"timeout"`
	Database   DBConfig      `yaml:"database"`
}

// Functions invokes edge functions over HTTP.
type Functions struct {
	http *httpx.Client
}

// NewFunctions creates an edge-function client authenticated with the service key.
func NewFunctions(cfg Config, opts ...httpx.Option) *Functions {
	opts = append([]httpx.Option{
		httpx.WithBearer(cfg.ServiceKey),
		httpx.WithHeader("apikey", cfg.ServiceKey),
	}, opts...)
	return &Functions{http: httpx.New(string(domain.ServiceSupabase), cfg.URL+"/functions/v1", cfg.Timeout, opts...)}
}

// Invoke calls function name with a JSON body and decodes the JSON reply into out.
func (f *Functions) Invoke(ctx context.Context, name string, body, out any) error {
	return f.http.Do(ctx, httpx.Request{
		Method: http.MethodPost,
		Path:   "/" + url.PathEscape(name),
		Body:   body,
	}, out)
}

// Monitor exposes call statistics.
func (f *Functions) Monitor() *httpx.Monitor { return f.http.Monitor }
