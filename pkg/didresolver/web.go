package didresolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multibase"

	"github.com/chriamue/didcomm-mediator/internal/mediatorerr"
)

// didDocument is the minimal subset of a DID document needed to extract a
// keyAgreement verification method's public key.
type didDocument struct {
	VerificationMethod []verificationMethod `json:"verificationMethod"`
	KeyAgreement       []json.RawMessage    `json:"keyAgreement"`
}

type verificationMethod struct {
	ID                 string `json:"id"`
	PublicKeyMultibase string `json:"publicKeyMultibase"`
	PublicKeyBase58    string `json:"publicKeyBase58"`
}

// WebResolver resolves did:web identifiers by fetching the well-known DID
// document over HTTPS.
type WebResolver struct {
	Client *http.Client
}

func NewWebResolver() *WebResolver {
	return &WebResolver{Client: &http.Client{Timeout: 10 * time.Second}}
}

func (WebResolver) Method() string { return "web" }

func (w *WebResolver) Resolve(ctx context.Context, did string) ([]byte, error) {
	docURL, err := didWebURL(did)
	if err != nil {
		return nil, mediatorerr.Wrap(mediatorerr.KindUnresolvable, "did:web URL", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return nil, mediatorerr.Wrap(mediatorerr.KindUnresolvable, "build request", err)
	}

	client := w.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, mediatorerr.Wrap(mediatorerr.KindUnresolvable, "fetch did.json", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, mediatorerr.New(mediatorerr.KindUnresolvable, fmt.Sprintf("did.json returned %d", resp.StatusCode))
	}

	var doc didDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, mediatorerr.Wrap(mediatorerr.KindUnresolvable, "decode did.json", err)
	}
	return extractKeyAgreementKey(&doc)
}

// didWebURL maps a did:web identifier to its well-known document URL,
// percent-decoding the ":"-separated path segments.
func didWebURL(did string) (string, error) {
	parts := strings.SplitN(did, ":", 3)
	if len(parts) != 3 || parts[0] != "did" || parts[1] != "web" {
		return "", fmt.Errorf("malformed did:web: %s", did)
	}
	segments := strings.Split(parts[2], ":")
	for i, s := range segments {
		decoded, err := url.PathUnescape(s)
		if err != nil {
			return "", fmt.Errorf("decode segment %q: %w", s, err)
		}
		segments[i] = decoded
	}

	host := segments[0]
	if len(segments) == 1 {
		return "https://" + host + "/.well-known/did.json", nil
	}
	return "https://" + host + "/" + strings.Join(segments[1:], "/") + "/did.json", nil
}

// extractKeyAgreementKey finds the verification method referenced by the
// document's keyAgreement list and decodes its public key.
func extractKeyAgreementKey(doc *didDocument) ([]byte, error) {
	byID := make(map[string]verificationMethod, len(doc.VerificationMethod))
	for _, vm := range doc.VerificationMethod {
		byID[vm.ID] = vm
	}

	for _, raw := range doc.KeyAgreement {
		var id string
		if err := json.Unmarshal(raw, &id); err == nil {
			if vm, ok := byID[id]; ok {
				if key, err := decodeVerificationMethodKey(vm); err == nil {
					return key, nil
				}
			}
			continue
		}
		var vm verificationMethod
		if err := json.Unmarshal(raw, &vm); err == nil {
			if key, err := decodeVerificationMethodKey(vm); err == nil {
				return key, nil
			}
		}
	}
	if len(doc.VerificationMethod) > 0 {
		return decodeVerificationMethodKey(doc.VerificationMethod[0])
	}
	return nil, mediatorerr.New(mediatorerr.KindUnresolvable, "no usable verification method in did document")
}

func decodeVerificationMethodKey(vm verificationMethod) ([]byte, error) {
	switch {
	case vm.PublicKeyMultibase != "":
		_, data, err := multibase.Decode(vm.PublicKeyMultibase)
		if err != nil {
			return nil, err
		}
		if len(data) == 34 && data[0] == x25519MulticodecPrefix[0] && data[1] == x25519MulticodecPrefix[1] {
			return data[2:], nil
		}
		return data, nil
	case vm.PublicKeyBase58 != "":
		return base58.Decode(vm.PublicKeyBase58)
	default:
		return nil, fmt.Errorf("verification method %s has no recognized key encoding", vm.ID)
	}
}
