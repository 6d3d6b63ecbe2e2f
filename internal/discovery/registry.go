package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RegistryClient queries the remote account registry service. Registry
// failures are never user-facing: the discovery service treats them as a
// signal to fall back to on-chain derivation.
type RegistryClient struct {
	baseURL string
	http    *http.Client
}

// NewRegistryClient builds a client for the registry at baseURL.
func NewRegistryClient(baseURL string) *RegistryClient {
	return &RegistryClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type registryResponse struct {
	Accounts []struct {
		AccountAddress string `json:"accountAddress"`
	} `json:"accounts"`
}

// AccountsFor returns the account addresses the registry associates with the
// given owner.
func (c *RegistryClient) AccountsFor(ctx context.Context, owner common.Address) ([]common.Address, error) {
	endpoint := fmt.Sprintf("%s/v1/accounts?owner=%s", c.baseURL, url.QueryEscape(owner.Hex()))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	var body registryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("cannot decode registry response: %w", err)
	}

	out := make([]common.Address, 0, len(body.Accounts))
	for _, rec := range body.Accounts {
		if !common.IsHexAddress(rec.AccountAddress) {
			continue
		}
		out = append(out, common.HexToAddress(rec.AccountAddress))
	}
	return out, nil
}
