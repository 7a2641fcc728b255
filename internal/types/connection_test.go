package types

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/orbit-lab/orbit-trading/pkg/errors"
)

type ConnectionTestSuite struct {
	suite.Suite
}

func TestConnectionSuite(t *testing.T) {
	suite.Run(t, new(ConnectionTestSuite))
}

func (suite *ConnectionTestSuite) TestConnectionStatusConstants() {
	suite.Equal(ConnectionStatus("DISCONNECTED"), ConnectionStatusDisconnected)
	suite.Equal(ConnectionStatus("CONNECTING"), ConnectionStatusConnecting)
	suite.Equal(ConnectionStatus("CONNECTED"), ConnectionStatusConnected)
	suite.Equal(ConnectionStatus("ERROR"), ConnectionStatusError)
}

func (suite *ConnectionTestSuite) TestValidCredentials() {
	creds := Credentials{
		Server:   "MetaQuotes-Demo",
		Login:    "12345",
		Password: "x",
	}
	suite.NoError(creds.Validate())
}

func (suite *ConnectionTestSuite) TestEmptyServer() {
	creds := Credentials{
		Server:   "",
		Login:    "12345",
		Password: "x",
	}
	err := creds.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidCredentialSet))
}

func (suite *ConnectionTestSuite) TestNonNumericLogin() {
	creds := Credentials{
		Server:   "MetaQuotes-Demo",
		Login:    "alice",
		Password: "x",
	}
	err := creds.Validate()
	suite.Error(err)
	suite.True(errors.IsValidation(err))
}

func (suite *ConnectionTestSuite) TestEmptyPassword() {
	creds := Credentials{
		Server:   "MetaQuotes-Demo",
		Login:    "12345",
		Password: "",
	}
	suite.Error(creds.Validate())
}
