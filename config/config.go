package config

import (
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

var ErrUsage = errors.New("config: usage")

const maxPort = 65535

type Config struct {
	ServerPort        int
	SSLPort           int
	QUICPort          int
	Root              string
	Redirects         string
	CertFile          string
	KeyFile           string
	MaxSessions       int
	CatalogPerSession bool
	CatalogRefresh    time.Duration
	Name              string
	OTLPEndpoint      string
	LogLevel          slog.Level
}

// Parse reads the command line. Both listener ports are required; every
// problem with them is reported as ErrUsage after the usage text has been
// written to output.
func Parse(args []string, output io.Writer) (Config, error) {
	cfg := Config{ServerPort: -1, SSLPort: -1}
	var logLevel string

	fs := flag.NewFlagSet("webserver", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Func("serverPort", "plaintext listener port (required)", portFlag(&cfg.ServerPort))
	fs.Func("sslPort", "TLS listener port (required)", portFlag(&cfg.SSLPort))
	fs.Func("quicPort", "QUIC listener port, 0 disables it", portFlag(&cfg.QUICPort))
	fs.StringVar(&cfg.Root, "root", "./www", "directory served to clients")
	fs.StringVar(&cfg.Redirects, "redirects", "./www/redirect.defs", "redirect definitions file")
	fs.StringVar(&cfg.CertFile, "cert", "server.crt", "PEM certificate for the TLS and QUIC listeners")
	fs.StringVar(&cfg.KeyFile, "key", "server.key", "PEM private key for the TLS and QUIC listeners")
	fs.IntVar(&cfg.MaxSessions, "maxSessions", 1024, "maximum number of concurrent sessions")
	fs.BoolVar(&cfg.CatalogPerSession, "catalogPerSession", false, "rescan the document root for every connection")
	fs.DurationVar(&cfg.CatalogRefresh, "catalogRefresh", 0, "rescan the document root at this interval, 0 disables it")
	fs.StringVar(&cfg.Name, "name", "Gravel Static", "server name sent in the Server header")
	fs.StringVar(&cfg.OTLPEndpoint, "otlpEndpoint", "", "OTLP gRPC endpoint, empty disables export")
	fs.StringVar(&logLevel, "logLevel", "info", "log level (debug, info, warn, error)")

	fs.Usage = func() {
		fmt.Fprintln(output, "Usage: webserver --serverPort=<port> --sslPort=<port> [options]")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrUsage, err)
	}

	seen := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		seen[f.Name] = true
	})

	var problems []string
	for _, name := range []string{"serverPort", "sslPort"} {
		if !seen[name] {
			problems = append(problems, "missing --"+name)
		}
	}
	ports := []struct {
		name string
		port int
	}{
		{"serverPort", cfg.ServerPort},
		{"sslPort", cfg.SSLPort},
		{"quicPort", cfg.QUICPort},
	}
	for _, p := range ports {
		if seen[p.name] && (p.port < 0 || p.port > maxPort) {
			problems = append(problems, "--"+p.name+" out of range: "+strconv.Itoa(p.port))
		}
	}
	if cfg.MaxSessions <= 0 {
		problems = append(problems, "--maxSessions must be positive")
	}
	if cfg.CatalogRefresh < 0 {
		problems = append(problems, "--catalogRefresh must not be negative")
	}
	if cfg.CatalogPerSession && cfg.CatalogRefresh > 0 {
		problems = append(problems, "--catalogPerSession and --catalogRefresh are exclusive")
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(logLevel)); err != nil {
		problems = append(problems, "--logLevel: "+err.Error())
	}

	if len(problems) > 0 {
		fs.Usage()
		return cfg, fmt.Errorf("%w: %s", ErrUsage, strings.Join(problems, ", "))
	}

	return cfg, nil
}

// portFlag accepts plain decimal digits only, so "0x50", "+80" or "1e3" are
// rejected.
func portFlag(port *int) func(string) error {
	return func(value string) error {
		if value == "" || strings.TrimLeft(value, "0123456789") != "" {
			return fmt.Errorf("invalid port %q", value)
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid port %q", value)
		}
		*port = n
		return nil
	}
}

func (c Config) ServerAddr() string {
	return ":" + strconv.Itoa(c.ServerPort)
}

func (c Config) SSLAddr() string {
	return ":" + strconv.Itoa(c.SSLPort)
}

func (c Config) QUICAddr() string {
	return ":" + strconv.Itoa(c.QUICPort)
}

// TLSConfig loads the certificate pair used by the secure listeners.
func (c Config) TLSConfig() (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("config: load key pair: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
