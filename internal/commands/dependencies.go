package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
	"golang.org/x/term"

	"github.com/diogo/insightchat/internal/api"
	"github.com/diogo/insightchat/internal/config"
	"github.com/diogo/insightchat/internal/logging"
	"github.com/diogo/insightchat/internal/session"
	"github.com/diogo/insightchat/internal/tui"
)

// TUIInterface defines the methods required from the TUI package.
type TUIInterface interface {
	RunLogin(manager *session.Manager, email string) (session.State, error)
	RunChat(opts tui.Options) (tui.Model, error)
}

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	// Client replaces the backend client built from config when set.
	Client api.Asker

	// Store replaces the session file in the config directory when set.
	Store session.Store

	// Authenticator replaces the static authenticator when set.
	Authenticator session.Authenticator

	// TUI is the terminal user interface.
	TUI TUIInterface

	// LoadConfig returns the effective configuration.
	LoadConfig func() (config.Effective, error)

	// ReadPassword prompts for a password without echo.
	ReadPassword func() (string, error)

	Clipboard func(string) error

	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

// DefaultTUI is the production implementation of TUIInterface.
type DefaultTUI struct{}

func (d *DefaultTUI) RunLogin(manager *session.Manager, email string) (session.State, error) {
	return tui.RunLogin(manager, email)
}

func (d *DefaultTUI) RunChat(opts tui.Options) (tui.Model, error) {
	return tui.RunChat(opts)
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		TUI:          &DefaultTUI{},
		LoadConfig:   config.LoadEffective,
		ReadPassword: readPasswordFromTerminal,
		Clipboard:    clipboard.WriteAll,
		In:           os.Stdin,
		Out:          os.Stdout,
		ErrOut:       os.Stderr,
	}
}

// withDefaults fills unset fields so tests only need to set what they use
func (d *Dependencies) withDefaults() *Dependencies {
	if d == nil {
		return NewDependencies()
	}
	def := NewDependencies()
	if d.TUI == nil {
		d.TUI = def.TUI
	}
	if d.LoadConfig == nil {
		d.LoadConfig = def.LoadConfig
	}
	if d.ReadPassword == nil {
		d.ReadPassword = def.ReadPassword
	}
	if d.Clipboard == nil {
		d.Clipboard = def.Clipboard
	}
	if d.In == nil {
		d.In = def.In
	}
	if d.Out == nil {
		d.Out = def.Out
	}
	if d.ErrOut == nil {
		d.ErrOut = def.ErrOut
	}
	return d
}

// effectiveConfig loads the configuration and applies persistent flag overrides
func (d *Dependencies) effectiveConfig() (config.Effective, error) {
	eff, err := d.LoadConfig()
	if err != nil {
		return eff, fmt.Errorf("invalid configuration: %w", err)
	}

	if endpointFlag != "" {
		eff.Config.Endpoint = endpointFlag
		eff.Overridden = append(eff.Overridden, "endpoint")
	}
	if protocolFlag != "" {
		eff.Config.Protocol = protocolFlag
		eff.Overridden = append(eff.Overridden, "protocol")
	}
	if verboseFlag {
		eff.Config.Verbose = true
	}

	if endpointFlag != "" || protocolFlag != "" {
		if err := eff.Config.Validate(); err != nil {
			return eff, err
		}
	}
	return eff, nil
}

// sessionManager builds the manager guarding the chat view
func (d *Dependencies) sessionManager(eff config.Effective) (*session.Manager, error) {
	store := d.Store
	if store == nil {
		fs, err := session.DefaultFileStore()
		if err != nil {
			return nil, err
		}
		store = fs
	}

	auth := d.Authenticator
	if auth == nil {
		auth = session.NewStaticAuthenticator(eff.Credentials)
	}
	return session.NewManager(store, auth), nil
}

// client returns the injected client or builds one from the configuration
func (d *Dependencies) client(cfg config.Config) (api.Asker, error) {
	if d.Client != nil {
		return d.Client, nil
	}

	c, err := api.NewClient(
		api.WithEndpoint(cfg.Endpoint),
		api.WithProtocol(cfg.ProtocolName()),
		api.WithModel(cfg.Model),
		api.WithTimeout(cfg.Timeout()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return c, nil
}

// initLogging installs the logger. Interactive views log to a file so the
// terminal stays clean; one-shot commands log to stderr when verbose.
func initLogging(cfg config.Config, interactive bool) io.Closer {
	opts := logging.Options{Verbose: cfg.Verbose}

	switch {
	case interactive:
		path, err := config.GetLogPath(cfg)
		if err != nil {
			opts.Sink = logging.SinkDiscard
			break
		}
		opts.Sink = logging.SinkFile
		opts.Path = path
	case cfg.Verbose:
		opts.Sink = logging.SinkConsole
	default:
		opts.Sink = logging.SinkDiscard
	}

	closer, err := logging.Init(opts)
	if err != nil {
		closer, _ = logging.Init(logging.Options{Sink: logging.SinkDiscard})
	}
	return closer
}

func readPasswordFromTerminal() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("password prompt requires a terminal")
	}
	data, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(data), nil
}
