// Command shadow_compare replays read-only API calls against a baseline and a candidate
// deployment and reports status or body drift. It is meant for release checks, e.g. a
// Postgres-backed candidate against a seeded baseline.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Fields whose values differ between any two calls.
var volatileFields = map[string]struct{}{
	"evaluatedAt": {},
	"generatedAt": {},
	"expiresAt":   {},
	"token":       {},
	"request_id":  {},
}

type target struct {
	Path     string   `json:"path"`
	Critical bool     `json:"critical"`
	Bearer   string   `json:"bearer,omitempty"`
	Ignore   []string `json:"ignore,omitempty"`
}

type targetsFile struct {
	Targets []target `json:"targets"`
}

type comparison struct {
	Target            target
	BaselineStatus    int
	CandidateStatus   int
	StatusMatch       bool
	BodyMatch         bool
	Error             error
	BaselineDuration  time.Duration
	CandidateDuration time.Duration
}

func (c comparison) drifted() bool {
	return c.Error != nil || !c.StatusMatch || !c.BodyMatch
}

func main() {
	var (
		candidateBase string
		baselineBase  string
		targetsPath   string
		timeout       time.Duration
	)

	flag.StringVar(&candidateBase, "candidate", "http://localhost:8080", "Candidate API base URL")
	flag.StringVar(&baselineBase, "baseline", "http://localhost:8081", "Baseline API base URL")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "shadow_compare", "targets.json"), "Path to JSON targets file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	logr, _ := zap.NewDevelopment()
	defer logr.Sync() //nolint:errcheck
	sugar := logr.Sugar()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		sugar.Fatalw("failed to load targets", "path", targetsPath, "error", err)
	}

	client := &http.Client{
		Timeout: timeout,
		// Join links redirect to the meeting host; compare the redirect itself.
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}

	var breaking, optional int
	comparisons := make([]comparison, 0, len(targets))
	for _, t := range targets {
		comp := compareTarget(client, baselineBase, candidateBase, t)
		if comp.drifted() {
			if t.Critical {
				breaking++
			} else {
				optional++
			}
		}
		comparisons = append(comparisons, comp)
	}

	printReport(os.Stdout, comparisons)
	sugar.Infow("shadow compare finished", "targets", len(targets), "breaking", breaking, "optional", optional)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file targetsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return file.Targets, nil
}

func compareTarget(client *http.Client, baselineBase, candidateBase string, tgt target) comparison {
	comp := comparison{Target: tgt}
	baselineStatus, baselineBody, baselineDur, err := fetch(client, baselineBase, tgt)
	if err != nil {
		comp.Error = fmt.Errorf("baseline request failed: %w", err)
		return comp
	}
	candidateStatus, candidateBody, candidateDur, err := fetch(client, candidateBase, tgt)
	if err != nil {
		comp.Error = fmt.Errorf("candidate request failed: %w", err)
		return comp
	}

	comp.BaselineStatus = baselineStatus
	comp.CandidateStatus = candidateStatus
	comp.BaselineDuration = baselineDur
	comp.CandidateDuration = candidateDur
	comp.StatusMatch = baselineStatus == candidateStatus
	comp.BodyMatch = bodiesEqual(baselineBody, candidateBody, tgt.Ignore)
	return comp
}

// fetch only issues GETs; checkout and settlement calls would mutate both deployments.
func fetch(client *http.Client, base string, tgt target) (int, []byte, time.Duration, error) {
	if client == nil {
		return 0, nil, 0, errors.New("nil client")
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequest(http.MethodGet, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return 0, nil, 0, err
	}
	if tgt.Bearer != "" {
		req.Header.Set("Authorization", "Bearer "+tgt.Bearer)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, 0, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, time.Since(start), nil
}

func bodiesEqual(a, b []byte, ignore []string) bool {
	if bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b)) {
		return true
	}

	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	skip := make(map[string]struct{}, len(volatileFields)+len(ignore))
	for k := range volatileFields {
		skip[k] = struct{}{}
	}
	for _, k := range ignore {
		skip[k] = struct{}{}
	}
	normalize(&aj, skip)
	normalize(&bj, skip)
	return reflect.DeepEqual(aj, bj)
}

func normalize(v *interface{}, skip map[string]struct{}) {
	switch val := (*v).(type) {
	case map[string]interface{}:
		for k, v2 := range val {
			if _, ok := skip[k]; ok {
				delete(val, k)
				continue
			}
			normalize(&v2, skip)
			val[k] = v2
		}
	case []interface{}:
		for i, v2 := range val {
			normalize(&v2, skip)
			val[i] = v2
		}
	case float64:
		if val == float64(int64(val)) {
			*v = int64(val)
		}
	}
}

func printReport(w io.Writer, results []comparison) {
	fmt.Fprintln(w, "Shadow Compare Report")
	fmt.Fprintln(w, "=====================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if res.drifted() {
			status = "DIFF"
		}
		fmt.Fprintf(w, "[%s] GET %s\n", status, res.Target.Path)
		fmt.Fprintf(w, "  Baseline: %d (%s)\n", res.BaselineStatus, res.BaselineDuration)
		fmt.Fprintf(w, "  Candidate: %d (%s)\n", res.CandidateStatus, res.CandidateDuration)
		if res.Error != nil {
			fmt.Fprintf(w, "  Error: %v\n", res.Error)
		} else {
			fmt.Fprintf(w, "  Status match: %t | Body match: %t | Critical: %t\n", res.StatusMatch, res.BodyMatch, res.Target.Critical)
		}
	}
}
