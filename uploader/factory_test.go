package uploader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploaderFor(t *testing.T) {
	tests := []struct {
		name         string
		uri          string
		expectedName string
		wantErr      bool
	}{
		{
			name:         "azure account and container",
			uri:          "az://myaccount/mycontainer",
			expectedName: "az-myaccount-mycontainer",
		},
		{
			name:         "s3 bucket with prefix and region",
			uri:          "s3://mybucket/images?region=eu-west-1",
			expectedName: "s3-mybucket",
		},
		{
			name:         "local directory",
			uri:          "file:///tmp/blobs",
			expectedName: "file-blobs",
		},
		{
			name:    "azure uri without container",
			uri:     "az://myaccount",
			wantErr: true,
		},
		{
			name:    "azure uri with nested path",
			uri:     "az://myaccount/a/b",
			wantErr: true,
		},
		{
			name:    "s3 uri without bucket",
			uri:     "s3://",
			wantErr: true,
		},
		{
			name:    "unsupported scheme",
			uri:     "ftp://host/dir",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up, err := UploaderFor(tt.uri, nil)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidLocationURI)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectedName, up.Name())
		})
	}
}
