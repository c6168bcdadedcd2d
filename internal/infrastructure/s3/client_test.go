package s3

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	_, err := NewClient(&Config{Endpoint: "localhost:9000"}, zerolog.Nop())
	assert.Error(t, err)

	client, err := NewClient(&Config{
		Endpoint:  "localhost:9000",
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "reports",
		PublicURL: "http://localhost:9000/",
	}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/reports/run-1.csv", client.ObjectURL("run-1.csv"))
}

func TestObjectURL_WithoutPublicURL(t *testing.T) {
	client, err := NewClient(&Config{Endpoint: "localhost:9000", Bucket: "reports"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "s3://reports/failures/run-1.csv", client.ObjectURL("failures/run-1.csv"))
}
