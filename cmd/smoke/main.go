package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"leadsniper.app/internal/auth"
)

// Smoke check against a running API instance: health, readiness, and an
// authenticated list call when the auth secret is available.
func main() {
	base := os.Getenv("LEADSNIPER_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}

	client := &http.Client{Timeout: 5 * time.Second}

	mustGet := func(path, token string) map[string]any {
		req, err := http.NewRequest(http.MethodGet, base+path, nil)
		if err != nil {
			log.Fatalf("%s: %v", path, err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := client.Do(req)
		if err != nil {
			log.Fatalf("%s: %v", path, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			log.Fatalf("%s: status %d", path, resp.StatusCode)
		}
		var out map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			log.Fatalf("%s: decode: %v", path, err)
		}
		return out
	}

	health := mustGet("/healthz", "")
	if health["status"] != "ok" {
		log.Fatalf("healthz status: %v", health["status"])
	}
	mustGet("/readyz", "")
	info := mustGet("/v1/info", "")

	if secret := os.Getenv("LEADSNIPER_AUTH_SECRET"); secret != "" {
		tok, err := auth.New(secret).IssueToken("smoke-user")
		if err != nil {
			log.Fatalf("issue token: %v", err)
		}
		leads := mustGet("/v1/leads", tok)
		fmt.Printf("leads endpoint ok, next cursor %v\n", leads["next"])
	}

	fmt.Printf("smoke test passed: version %v\n", info["version"])
}
