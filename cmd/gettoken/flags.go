package gettoken

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/config"

	"github.com/pytoccaz/keycloak-token/internal/keycloak"
	"github.com/pytoccaz/keycloak-token/internal/result"
)

// Options holds the get-token command options
type Options struct {
	// Connection options
	URL   string
	Realm string

	// Credential options (direct mode)
	Username string
	Password string
	ClientID string

	// Credential options (from-secret mode)
	FromSecret  string
	Namespace   string
	UsernameKey string
	PasswordKey string

	// HTTP options
	ValidateCerts     bool
	ConnectionTimeout int
	HTTPAgent         string

	// Output options
	Output string
	Format string

	// General options
	Verbose bool
}

// BindFlags binds the options to the given flag set
func (o *Options) BindFlags(fs *flag.FlagSet) {
	// Connection options
	fs.StringVar(&o.URL, "url", "", "Keycloak server URL (e.g., https://auth.example.com)")
	fs.StringVar(&o.Realm, "realm", "", "Realm to authenticate against (required)")

	// Credential options (direct mode)
	fs.StringVar(&o.Username, "username", "", "Username to authenticate with")
	fs.StringVar(&o.Password, "password", "", "Password to authenticate with (use env var KEYCLOAK_PASSWORD for security)")
	fs.StringVar(&o.ClientID, "client-id", keycloak.DefaultClientID, "OpenID Connect client_id to authenticate with")

	// Credential options (from-secret mode)
	fs.StringVar(&o.FromSecret, "from-secret", "", "Name of a Kubernetes Secret to read username/password from")
	fs.StringVar(&o.Namespace, "namespace", "", "Namespace of the credentials Secret (required with --from-secret)")
	fs.StringVar(&o.UsernameKey, "username-key", "username", "Key of the username entry in the Secret")
	fs.StringVar(&o.PasswordKey, "password-key", "password", "Key of the password entry in the Secret")

	// HTTP options
	fs.BoolVar(&o.ValidateCerts, "validate-certs", true, "Verify TLS certificates (do not disable this in production)")
	fs.IntVar(&o.ConnectionTimeout, "connection-timeout", 10, "HTTP connection timeout in seconds")
	fs.StringVar(&o.HTTPAgent, "http-agent", keycloak.DefaultUserAgent, "HTTP User-Agent header")

	// Output options
	fs.StringVar(&o.Output, "output", "", "Output file path (default: stdout)")
	fs.StringVar(&o.Format, "format", result.FormatJSON, "Output format: json, yaml or raw")

	// General options
	fs.BoolVar(&o.Verbose, "verbose", false, "Enable verbose output")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: keycloak-token get-token [options]

Obtain an access token from a Keycloak OpenID Connect token endpoint
using the OAuth2 password grant.

Connection Options:
    --url           Keycloak server URL (required)
    --realm         Realm to authenticate against (required)

Credential Options (choose one mode):

  Direct:
    --username      Username
    --password      Password (or use KEYCLOAK_PASSWORD env var)
    --client-id     client_id (default: "admin-cli")

  From a Kubernetes Secret:
    --from-secret   Name of the credentials Secret
    --namespace     Namespace of the Secret
    --username-key  Username key in the Secret (default: "username")
    --password-key  Password key in the Secret (default: "password")

HTTP Options:
    --validate-certs      Verify TLS certificates (default: true)
    --connection-timeout  Timeout in seconds (default: 10)
    --http-agent          User-Agent header

Output Options:
    --output        Output file path (default: stdout)
    --format        json, yaml or raw (default: json)

Examples:

  # Fetch a token and print it as JSON
  keycloak-token get-token \
    --url https://auth.example.com \
    --realm master \
    --username admin \
    --password "$KEYCLOAK_PASSWORD"

  # Capture the bare token in a shell variable
  TOKEN=$(keycloak-token get-token \
    --url https://auth.example.com \
    --realm master \
    --username admin \
    --password "$KEYCLOAK_PASSWORD" \
    --format raw)

  # Read credentials from a Kubernetes Secret
  keycloak-token get-token \
    --url https://auth.example.com \
    --realm master \
    --from-secret keycloak-admin \
    --namespace keycloak

`)
		fs.PrintDefaults()
	}
}

// Validate validates the options. The realm/username/password group is
// required together: the password grant needs all three, whichever mode
// supplies the credentials.
func (o *Options) Validate() error {
	// Check password from environment if not provided
	if o.Password == "" {
		o.Password = os.Getenv("KEYCLOAK_PASSWORD")
	}

	if o.URL == "" {
		return fmt.Errorf("--url is required")
	}

	if o.Realm == "" {
		return fmt.Errorf("--realm is required")
	}

	directMode := o.Username != "" || o.Password != ""
	secretMode := o.FromSecret != ""

	if directMode && secretMode {
		return fmt.Errorf("cannot use both --username/--password and --from-secret")
	}

	if secretMode {
		if o.Namespace == "" {
			return fmt.Errorf("--namespace is required when using --from-secret")
		}
		return nil
	}

	if o.Username == "" {
		return fmt.Errorf("--username is required")
	}
	if o.Password == "" {
		return fmt.Errorf("--password is required (or set KEYCLOAK_PASSWORD env var)")
	}

	return nil
}

// GetTokenConfig returns the token client configuration
func (o *Options) GetTokenConfig(ctx context.Context, log logr.Logger) (keycloak.Config, error) {
	cfg := keycloak.Config{
		BaseURL:            o.URL,
		Realm:              o.Realm,
		ClientID:           &o.ClientID,
		InsecureSkipVerify: !o.ValidateCerts,
		Timeout:            time.Duration(o.ConnectionTimeout) * time.Second,
		UserAgent:          o.HTTPAgent,
	}

	if o.FromSecret == "" {
		// Direct mode
		cfg.Username = &o.Username
		cfg.Password = &o.Password
		return cfg, nil
	}

	// From-secret mode - need to read from Kubernetes
	restCfg, err := config.GetConfig()
	if err != nil {
		return cfg, fmt.Errorf("failed to get kubeconfig: %w (ensure KUBECONFIG is set or ~/.kube/config exists)", err)
	}

	k8sClient, err := client.New(restCfg, client.Options{})
	if err != nil {
		return cfg, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}

	username, password, err := o.loadFromSecret(ctx, k8sClient)
	if err != nil {
		return cfg, err
	}

	log.V(1).Info("loaded credentials from secret", "secret", o.FromSecret, "namespace", o.Namespace)

	cfg.Username = &username
	cfg.Password = &password
	return cfg, nil
}

func (o *Options) loadFromSecret(ctx context.Context, k8sClient client.Client) (string, string, error) {
	secret := &corev1.Secret{}
	if err := k8sClient.Get(ctx, types.NamespacedName{
		Name:      o.FromSecret,
		Namespace: o.Namespace,
	}, secret); err != nil {
		return "", "", fmt.Errorf("failed to get credentials secret %s/%s: %w", o.Namespace, o.FromSecret, err)
	}

	username, ok := secret.Data[o.UsernameKey]
	if !ok {
		return "", "", fmt.Errorf("username key %q not found in secret %s/%s", o.UsernameKey, o.Namespace, o.FromSecret)
	}

	password, ok := secret.Data[o.PasswordKey]
	if !ok {
		return "", "", fmt.Errorf("password key %q not found in secret %s/%s", o.PasswordKey, o.Namespace, o.FromSecret)
	}

	return string(username), string(password), nil
}
