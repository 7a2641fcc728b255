package types

import (
	"github.com/go-playground/validator/v10"

	"github.com/orbit-lab/orbit-trading/pkg/errors"
)

// ConnectionStatus is the lifecycle state of the broker connection.
type ConnectionStatus string

const (
	ConnectionStatusDisconnected ConnectionStatus = "DISCONNECTED"
	ConnectionStatusConnecting   ConnectionStatus = "CONNECTING"
	ConnectionStatusConnected    ConnectionStatus = "CONNECTED"
	ConnectionStatusError        ConnectionStatus = "ERROR"
)

// Credentials identify a broker account. The login is the numeric account
// identifier brokers print on account statements, carried as a string because
// it arrives from external credential stores that way.
type Credentials struct {
	Server   string `json:"server" yaml:"server" validate:"required"`
	Login    string `json:"login" yaml:"login" validate:"required,numeric"`
	Password string `json:"password" yaml:"password" validate:"required"`
}

// Validate validates the credential shape before any handshake is attempted.
func (c *Credentials) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidCredentialSet, "invalid credentials", err)
	}

	return nil
}
