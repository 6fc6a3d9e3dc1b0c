package probe

import "time"

// Config maps the PROBE_* environment variables.
type Config struct {
	Addr            string        `env:"PROBE_ADDR" envDefault:":8081"`
	ReadTimeout     time.Duration `env:"PROBE_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"PROBE_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"PROBE_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	CheckTimeout    time.Duration `env:"PROBE_CHECK_TIMEOUT" envDefault:"10s"`
}

// NewFromConfig creates a Server from cfg. Only non-zero values are applied;
// opts are applied last.
func NewFromConfig(cfg Config, opts ...Option) *Server {
	configOpts := make([]Option, 0, 5+len(opts))

	if cfg.Addr != "" {
		configOpts = append(configOpts, WithAddr(cfg.Addr))
	}
	if cfg.ReadTimeout > 0 {
		configOpts = append(configOpts, WithReadTimeout(cfg.ReadTimeout))
	}
	if cfg.WriteTimeout > 0 {
		configOpts = append(configOpts, WithWriteTimeout(cfg.WriteTimeout))
	}
	if cfg.ShutdownTimeout > 0 {
		configOpts = append(configOpts, WithShutdownTimeout(cfg.ShutdownTimeout))
	}
	if cfg.CheckTimeout > 0 {
		d := cfg.CheckTimeout
		configOpts = append(configOpts, func(c *config) { c.checkTimeout = d })
	}

	return New(append(configOpts, opts...)...)
}
