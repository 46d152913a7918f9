// Package diagnose produces the photo assessment returned by the
// photo-diagnosis endpoint. The flow is mocked: no model runs here, the
// endpoint exists so field tooling can integrate against a stable contract.
package diagnose

import (
	"context"
	"fmt"
	"strings"
)

// Canned returns a deterministic assessment derived from the submitted
// image's declared content type and size.
type Canned struct{}

func NewCanned() *Canned {
	return &Canned{}
}

// Analyze returns the canned assessment for one data-URL image.
func (Canned) Analyze(_ context.Context, imageDataURL string) (string, error) {
	contentType := "image"
	if rest, ok := strings.CutPrefix(imageDataURL, "data:"); ok {
		if meta, _, found := strings.Cut(rest, ","); found {
			contentType = strings.TrimSuffix(meta, ";base64")
		}
	}
	return fmt.Sprintf(
		"Received a %s photo (%d encoded bytes). Automated assessment is not "+
			"enabled on this installation. Check the unit's display panel for an "+
			"active error code and look it up in the catalog; verify airflow, "+
			"refrigerant line insulation, and any visible corrosion or leaks.",
		contentType, len(imageDataURL),
	), nil
}
