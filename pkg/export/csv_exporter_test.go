package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRenderFollowsHeaderOrder(t *testing.T) {
	data := Dataset{
		Headers:        []string{"Report", "Cost"},
		NumericHeaders: []string{"Cost"},
		Rows: []map[string]string{
			{"Report": "Brake issue", "Cost": "240.50"},
			{"Report": "Rust damage"},
		},
	}

	payload, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	assert.Equal(t, "Report,Cost\nBrake issue,240.50\nRust damage,\n", string(payload))
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestDatasetIsNumeric(t *testing.T) {
	data := Dataset{Headers: []string{"Report", "Cost"}, NumericHeaders: []string{"Cost"}}

	assert.True(t, data.IsNumeric("Cost"))
	assert.False(t, data.IsNumeric("Report"))
}
