package services

import (
	"context"
	"errors"
	"net/http"

	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/opensearch-project/opensearch-go"
)

const clusterUrl = "http://opensearch.example.com:9200"

func failMessage(args ...interface{}) {
	Fail("unexpected request to the engine")
}

func newTestClient(transport *httpmock.MockTransport) *OsClusterClient {
	transport.RegisterResponder(
		http.MethodHead,
		clusterUrl+"/",
		httpmock.NewStringResponder(200, ""),
	)
	transport.RegisterResponder(
		http.MethodGet,
		clusterUrl+"/",
		httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{
			"cluster_name": "test-cluster",
			"version": map[string]interface{}{
				"distribution": "opensearch",
				"number":       "2.11.0",
			},
		}),
	)
	client, err := NewOsClusterClientFromConfig(opensearch.Config{
		Transport: transport,
		Addresses: []string{clusterUrl},
	})
	Expect(err).NotTo(HaveOccurred())
	return client
}

var _ = Describe("index service", func() {
	var (
		transport *httpmock.MockTransport
		client    *OsClusterClient
	)

	BeforeEach(func() {
		transport = httpmock.NewMockTransport()
		transport.RegisterNoResponder(httpmock.NewNotFoundResponder(failMessage))
		client = newTestClient(transport)
	})

	Describe("version gate", func() {
		It("accepts a supported engine", func() {
			Expect(client.CheckVersion()).To(Succeed())
		})

		It("rejects an engine older than the minimum", func() {
			client.MainPage.Version.Number = "0.9.1"
			Expect(client.CheckVersion()).To(HaveOccurred())
		})

		It("rejects a missing version", func() {
			client.MainPage.Version.Number = ""
			Expect(client.CheckVersion()).To(HaveOccurred())
		})
	})

	Describe("GetIndexState", func() {
		It("assembles settings, stats and aliases", func() {
			transport.RegisterResponder(
				http.MethodGet,
				clusterUrl+"/logs-000001/_settings",
				httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{
					"logs-000001": map[string]interface{}{
						"settings": map[string]interface{}{
							"index": map[string]interface{}{
								"creation_date":      "1713139200000",
								"number_of_replicas": "2",
								"priority":           "100",
								"blocks": map[string]interface{}{
									"write": "true",
								},
							},
						},
					},
				}),
			)
			transport.RegisterResponder(
				http.MethodGet,
				clusterUrl+"/logs-000001/_stats/docs,store",
				httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{
					"indices": map[string]interface{}{
						"logs-000001": map[string]interface{}{
							"primaries": map[string]interface{}{
								"docs":  map[string]interface{}{"count": 1500},
								"store": map[string]interface{}{"size_in_bytes": 52428800},
							},
						},
					},
				}),
			)
			transport.RegisterResponder(
				http.MethodGet,
				clusterUrl+"/logs-000001/_alias",
				httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{
					"logs-000001": map[string]interface{}{
						"aliases": map[string]interface{}{
							"logs": map[string]interface{}{"is_write_index": true},
						},
					},
				}),
			)

			state, err := client.GetIndexState(context.Background(), "logs-000001")
			Expect(err).NotTo(HaveOccurred())
			Expect(state.ReadOnly).To(BeTrue())
			Expect(state.ReplicaCount).To(Equal(int64(2)))
			Expect(state.Priority).To(Equal(int64(100)))
			Expect(state.DocCount).To(Equal(int64(1500)))
			Expect(state.SizeBytes).To(Equal(int64(52428800)))
			Expect(state.WriteAlias).To(Equal("logs"))
			Expect(state.IsWriteIndex()).To(BeTrue())
			Expect(state.CreationDate.UnixMilli()).To(Equal(int64(1713139200000)))
		})

		It("returns ErrNotFound for a missing index", func() {
			transport.RegisterResponder(
				http.MethodGet,
				clusterUrl+"/missing/_settings",
				httpmock.NewStringResponder(404, `{"error": "no such index"}`),
			)
			_, err := client.GetIndexState(context.Background(), "missing")
			Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
		})
	})

	Describe("settings updates", func() {
		It("sets the write block", func() {
			transport.RegisterResponder(
				http.MethodPut,
				clusterUrl+"/logs-000001/_settings",
				httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{"acknowledged": true}),
			)
			Expect(client.SetReadOnly(context.Background(), "logs-000001", true)).To(Succeed())
		})

		It("wraps engine failures", func() {
			transport.RegisterResponder(
				http.MethodPut,
				clusterUrl+"/logs-000001/_settings",
				httpmock.NewStringResponder(500, `{"error": "boom"}`),
			)
			err := client.SetReplicaCount(context.Background(), "logs-000001", 1)
			Expect(errors.Is(err, ErrEngineOperation)).To(BeTrue())
		})
	})

	Describe("RolloverAlias", func() {
		It("returns the new physical index", func() {
			transport.RegisterResponder(
				http.MethodPost,
				clusterUrl+"/logs/_rollover",
				httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{
					"acknowledged": true,
					"old_index":    "logs-000001",
					"new_index":    "logs-000002",
					"rolled_over":  true,
				}),
			)
			resp, err := client.RolloverAlias(context.Background(), "logs")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.RolledOver).To(BeTrue())
			Expect(resp.NewIndex).To(Equal("logs-000002"))
		})

		It("returns ErrNotFound for a missing alias", func() {
			transport.RegisterResponder(
				http.MethodPost,
				clusterUrl+"/missing/_rollover",
				httpmock.NewStringResponder(404, `{"error": "alias not found"}`),
			)
			_, err := client.RolloverAlias(context.Background(), "missing")
			Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
		})
	})

	Describe("destructive operations", func() {
		It("force merges with the segment cap", func() {
			transport.RegisterResponder(
				http.MethodPost,
				clusterUrl+"/logs-000001/_forcemerge?max_num_segments=1",
				httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{"_shards": map[string]interface{}{"failed": 0}}),
			)
			Expect(client.ForceMerge(context.Background(), "logs-000001", 1)).To(Succeed())
		})

		It("shrinks into the target index", func() {
			transport.RegisterResponder(
				http.MethodPut,
				clusterUrl+"/logs-000001/_shrink/logs-000001-shrink",
				httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{"acknowledged": true}),
			)
			Expect(client.Shrink(context.Background(), "logs-000001", "logs-000001-shrink", 1)).To(Succeed())
		})

		It("treats deleting a missing index as success", func() {
			transport.RegisterResponder(
				http.MethodDelete,
				clusterUrl+"/logs-000001",
				httpmock.NewStringResponder(404, `{"error": "no such index"}`),
			)
			Expect(client.DeleteIndex(context.Background(), "logs-000001")).To(Succeed())
		})
	})

	Describe("GetIndices", func() {
		It("lists indices matching the pattern and skips system indices", func() {
			transport.RegisterResponder(
				http.MethodGet,
				clusterUrl+"/_cat/indices/logs-*?format=json",
				httpmock.NewJsonResponderOrPanic(200, []map[string]interface{}{
					{"index": "logs-000001"},
					{"index": "logs-000002"},
					{"index": ".kibana_1"},
				}),
			)
			names, err := client.GetIndices(context.Background(), "logs-*")
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(ConsistOf("logs-000001", "logs-000002"))
		})

		It("returns nothing when the pattern matches no index", func() {
			transport.RegisterResponder(
				http.MethodGet,
				clusterUrl+"/_cat/indices/none-*?format=json",
				httpmock.NewStringResponder(404, `{"error": "no such index"}`),
			)
			names, err := client.GetIndices(context.Background(), "none-*")
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(BeEmpty())
		})
	})
})
