package study

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/klauspost/compress/gzip"

	"github.com/exchangelabs/permutest/internal/dataset"
)

// blobSource loads observations from Azure Blob Storage. Two reference forms
// are accepted:
//
//	az://<account>/<container>/<blob>
//	https://<account>.blob.core.windows.net/<container>/<blob>
//
// Authentication uses the default Azure credential chain (environment,
// workload identity, managed identity, az CLI).
type blobSource struct {
	label      string
	raw        string
	serviceURL string
	container  string
	blobName   string
}

func newBlobSource(raw, label string) (*blobSource, error) {
	s := &blobSource{label: label, raw: raw}

	if strings.HasPrefix(raw, "az://") {
		rest := strings.TrimPrefix(raw, "az://")
		parts := strings.SplitN(rest, "/", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return nil, fmt.Errorf("%s: malformed blob reference %q (want az://account/container/blob)", label, raw)
		}
		s.serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net", parts[0])
		s.container = parts[1]
		s.blobName = parts[2]
		return s, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: parsing blob URL %q: %w", label, raw, err)
	}
	parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%s: blob URL %q must name a container and a blob", label, raw)
	}
	s.serviceURL = u.Scheme + "://" + u.Host
	s.container = parts[0]
	s.blobName = parts[1]
	return s, nil
}

func (s *blobSource) Label() string    { return s.label }
func (s *blobSource) Describe() string { return s.raw }

func (s *blobSource) Load(ctx context.Context) ([]float64, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("%s sample: azure credential: %w", s.label, err)
	}

	client, err := azblob.NewClient(s.serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("%s sample: blob client: %w", s.label, err)
	}

	resp, err := client.DownloadStream(ctx, s.container, s.blobName, nil)
	if err != nil {
		return nil, fmt.Errorf("%s sample: downloading %s: %w", s.label, s.raw, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if strings.HasSuffix(s.blobName, ".gz") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%s sample: %s: %w", s.label, s.raw, err)
		}
		defer gz.Close() //nolint:errcheck
		return dataset.ReadFloat64Lines(gz, s.raw)
	}

	return dataset.ReadFloat64Lines(resp.Body, s.raw)
}
