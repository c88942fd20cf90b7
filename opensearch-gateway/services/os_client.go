package services

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-version"
	"github.com/opensearch-project/opensearch-go"
	"github.com/opensearch-project/opensearch-go/opensearchapi"

	"github.com/Opster/opensearch-ilm-orchestrator/opensearch-gateway/responses"
)

// MinimumEngineVersion is the oldest engine the orchestrator drives. The
// index-management surface it depends on (rollover, shrink, settings
// blocks) is stable from 1.0 on.
var MinimumEngineVersion = version.Must(version.NewVersion("1.0.0"))

type OsClusterClient struct {
	client   *opensearch.Client
	MainPage responses.MainResponse
}

func NewOsClusterClient(clusterUrl string, username string, password string) (*OsClusterClient, error) {
	config := opensearch.Config{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
		Addresses: []string{clusterUrl},
		Username:  username,
		Password:  password,
	}
	return NewOsClusterClientFromConfig(config)
}

func NewOsClusterClientFromConfig(config opensearch.Config) (*OsClusterClient, error) {
	service := new(OsClusterClient)
	client, err := opensearch.NewClient(config)
	if err != nil {
		return nil, err
	}
	service.client = client
	pingReq := opensearchapi.PingRequest{}
	pingRes, err := pingReq.Do(context.Background(), client)
	if err == nil && pingRes.StatusCode == 200 {
		mainPageResponse, err := MainPage(client)
		if err == nil {
			service.MainPage = mainPageResponse
		}
	}
	return service, err
}

func MainPage(client *opensearch.Client) (responses.MainResponse, error) {
	req := opensearchapi.InfoRequest{}
	infoRes, err := req.Do(context.Background(), client)
	var response responses.MainResponse
	if err == nil {
		defer infoRes.Body.Close()
		err = json.NewDecoder(infoRes.Body).Decode(&response)
	}
	return response, err
}

// CheckVersion verifies the connected engine is recent enough to expose
// the index-management APIs the orchestrator uses.
func (client *OsClusterClient) CheckVersion() error {
	number := client.MainPage.Version.Number
	if number == "" {
		return fmt.Errorf("engine did not report a version")
	}
	v, err := version.NewVersion(number)
	if err != nil {
		return fmt.Errorf("cannot parse engine version %q: %w", number, err)
	}
	if v.LessThan(MinimumEngineVersion) {
		return fmt.Errorf("engine version %s is older than minimum supported %s", v, MinimumEngineVersion)
	}
	return nil
}
