package integration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"pulsemetrics/internal/api"
	cachemem "pulsemetrics/internal/cache/memory"
	"pulsemetrics/internal/config"
	"pulsemetrics/internal/domain"
	storemem "pulsemetrics/internal/store/memory"
)

// apiStack wires the HTTP server over in-memory backends, plus direct
// handles to seed state.
type apiStack struct {
	server      *api.Server
	metricsRepo *storemem.MetricsRepository
	hotCache    *cachemem.HotCache
	pipeline    *stack
}

func startAPIStack() *apiStack {
	s := startStack(nil)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Default()

	pipelineHandler := api.NewPipelineHandler(s.service, logger)
	campaignHandler := api.NewCampaignHandler(s.metricsRepo, s.alertRepo, s.hotCache, logger)

	server := api.NewServer(api.ServerDeps{
		Config:          &cfg.Server,
		Logger:          logger,
		PipelineHandler: pipelineHandler,
		CampaignHandler: campaignHandler,
	})

	return &apiStack{
		server:      server,
		metricsRepo: s.metricsRepo,
		hotCache:    s.hotCache,
		pipeline:    s,
	}
}

func (a *apiStack) get(path string) (*http.Response, map[string]interface{}) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := a.server.Test(req)
	Expect(err).NotTo(HaveOccurred())

	var body map[string]interface{}
	if resp.Body != nil {
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		if len(data) > 0 {
			Expect(json.Unmarshal(data, &body)).To(Succeed())
		}
	}
	return resp, body
}

var _ = Describe("HTTP API", func() {
	var a *apiStack

	BeforeEach(func() {
		a = startAPIStack()
	})

	AfterEach(func() {
		a.pipeline.stop()
	})

	Describe("Health Check", func() {
		It("returns healthy status", func() {
			resp, body := a.get("/healthz")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body["success"]).To(BeTrue())
		})
	})

	Describe("Pipeline Stats", func() {
		It("exposes processing counters", func() {
			a.pipeline.publishBatch("campaign-http", 10, 0, 0)

			Eventually(func() float64 {
				_, body := a.get("/v1/pipeline/stats")
				data, _ := body["data"].(map[string]interface{})
				processed, _ := data["eventsProcessed"].(float64)
				return processed
			}, 5*time.Second, 20*time.Millisecond).Should(Equal(float64(10)))
		})
	})

	Describe("Consumer Group", func() {
		It("reports the group state", func() {
			resp, body := a.get("/v1/pipeline/consumer-group")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			data, ok := body["data"].(map[string]interface{})
			Expect(ok).To(BeTrue())
			Expect(data).To(HaveKey("pending"))
		})
	})

	Describe("Campaign Metrics", func() {
		It("returns 404 for an unknown campaign", func() {
			resp, body := a.get("/v1/campaigns/nope/metrics")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			Expect(body["success"]).To(BeFalse())
		})

		It("serves aggregated totals once events flow", func() {
			a.pipeline.publishBatch("campaign-http-metrics", 20, 15, 5)

			Eventually(func() float64 {
				resp, body := a.get("/v1/campaigns/campaign-http-metrics/metrics")
				if resp.StatusCode != http.StatusOK {
					return 0
				}
				data, _ := body["data"].(map[string]interface{})
				sent, _ := data["sentTotal"].(float64)
				return sent
			}, 5*time.Second, 20*time.Millisecond).Should(Equal(float64(20)))
		})

		It("falls back to the store when the cache is cold", func() {
			// Seed the store directly, bypassing the cache.
			err := a.metricsRepo.UpsertLifetime(context.Background(), []*domain.MetricsDelta{{
				CampaignID: "campaign-cold",
				TenantID:   "tenant-1",
				Sent:       7,
			}})
			Expect(err).NotTo(HaveOccurred())

			resp, body := a.get("/v1/campaigns/campaign-cold/metrics")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			data, _ := body["data"].(map[string]interface{})
			Expect(data["sentTotal"]).To(Equal(float64(7)))
		})
	})

	Describe("Campaign Alert", func() {
		It("returns 404 before any evaluation", func() {
			resp, _ := a.get("/v1/campaigns/never-evaluated/alert")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("serves the cached alert status after evaluation", func() {
			a.pipeline.publishBatch("campaign-http-alert", 10, 10, 0)

			Eventually(func() int {
				resp, _ := a.get("/v1/campaigns/campaign-http-alert/alert")
				return resp.StatusCode
			}, 5*time.Second, 20*time.Millisecond).Should(Equal(http.StatusOK))

			_, body := a.get("/v1/campaigns/campaign-http-alert/alert")
			data, _ := body["data"].(map[string]interface{})
			Expect(data["triggered"]).To(BeFalse())
			Expect(data).To(HaveKey("failureRate"))
		})
	})

	Describe("Prometheus Metrics", func() {
		It("exposes the scrape endpoint", func() {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			resp, err := a.server.Test(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})
})
