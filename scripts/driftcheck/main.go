// Command driftcheck compares the gateway's mirrored entity state against the
// upstream admin API and reports entities whose items have drifted. Intended
// for cron or a smoke check after deploys.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"
)

type entityDrift struct {
	Entity        string
	GatewayCount  int
	UpstreamCount int
	MissingLocal  []string
	ExtraLocal    []string
	Err           error
}

var entityPaths = map[string]string{
	"country":     "countries",
	"job":         "jobs",
	"candidate":   "candidates",
	"course":      "courses",
	"college":     "colleges",
	"certificate": "certificates",
	"coupon":      "coupons",
	"package":     "packages",
	"blog":        "blogs",
	"gallery":     "gallery",
	"intake":      "intakes",
}

func main() {
	var (
		gatewayBase  string
		upstreamBase string
		token        string
		timeout      time.Duration
		only         string
	)

	flag.StringVar(&gatewayBase, "gateway", "http://localhost:8090", "gateway base URL")
	flag.StringVar(&upstreamBase, "upstream", "http://localhost:5000/api", "upstream admin API base URL")
	flag.StringVar(&token, "token", "", "bearer token for the upstream")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.StringVar(&only, "only", "", "comma-separated entity subset, empty for all")
	flag.Parse()

	client := &http.Client{Timeout: timeout}

	selected := entityPaths
	if only != "" {
		selected = map[string]string{}
		for _, name := range strings.Split(only, ",") {
			name = strings.TrimSpace(name)
			path, ok := entityPaths[name]
			if !ok {
				log.Fatalf("unknown entity %q", name)
			}
			selected[name] = path
		}
	}

	names := make([]string, 0, len(selected))
	for name := range selected {
		names = append(names, name)
	}
	sort.Strings(names)

	drifted := 0
	for _, name := range names {
		d := checkEntity(client, gatewayBase, upstreamBase, token, name, selected[name])
		report(d)
		if d.Err != nil || len(d.MissingLocal) > 0 || len(d.ExtraLocal) > 0 || d.GatewayCount != d.UpstreamCount {
			drifted++
		}
	}

	if drifted > 0 {
		fmt.Printf("\n%d of %d entities drifted\n", drifted, len(names))
		os.Exit(1)
	}
	fmt.Printf("\nall %d entities in sync\n", len(names))
}

func checkEntity(client *http.Client, gatewayBase, upstreamBase, token, name, path string) entityDrift {
	d := entityDrift{Entity: name}

	localIDs, err := gatewayIDs(client, fmt.Sprintf("%s/api/v1/state/%s", gatewayBase, name))
	if err != nil {
		d.Err = fmt.Errorf("gateway: %w", err)
		return d
	}
	remoteIDs, err := upstreamIDs(client, fmt.Sprintf("%s/%s", strings.TrimRight(upstreamBase, "/"), path), token)
	if err != nil {
		d.Err = fmt.Errorf("upstream: %w", err)
		return d
	}

	d.GatewayCount = len(localIDs)
	d.UpstreamCount = len(remoteIDs)

	local := toSet(localIDs)
	remote := toSet(remoteIDs)
	for id := range remote {
		if _, ok := local[id]; !ok {
			d.MissingLocal = append(d.MissingLocal, id)
		}
	}
	for id := range local {
		if _, ok := remote[id]; !ok {
			d.ExtraLocal = append(d.ExtraLocal, id)
		}
	}
	sort.Strings(d.MissingLocal)
	sort.Strings(d.ExtraLocal)
	return d
}

func gatewayIDs(client *http.Client, url string) ([]string, error) {
	raw, err := fetch(client, url, "")
	if err != nil {
		return nil, err
	}
	var body struct {
		Data struct {
			Items []map[string]json.RawMessage `json:"items"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return extractIDs(body.Data.Items), nil
}

func upstreamIDs(client *http.Client, url, token string) ([]string, error) {
	raw, err := fetch(client, url, token)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Data []map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Data != nil {
		return extractIDs(envelope.Data), nil
	}

	var bare []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &bare); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	return extractIDs(bare), nil
}

func fetch(client *http.Client, url, token string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return raw, nil
}

func extractIDs(items []map[string]json.RawMessage) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		var id string
		if raw, ok := item["_id"]; ok {
			_ = json.Unmarshal(raw, &id)
		}
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func report(d entityDrift) {
	if d.Err != nil {
		fmt.Printf("%-12s ERROR %v\n", d.Entity, d.Err)
		return
	}
	if len(d.MissingLocal) == 0 && len(d.ExtraLocal) == 0 && d.GatewayCount == d.UpstreamCount {
		fmt.Printf("%-12s ok (%d items)\n", d.Entity, d.GatewayCount)
		return
	}
	fmt.Printf("%-12s DRIFT gateway=%d upstream=%d missing=%v extra=%v\n",
		d.Entity, d.GatewayCount, d.UpstreamCount, d.MissingLocal, d.ExtraLocal)
}
