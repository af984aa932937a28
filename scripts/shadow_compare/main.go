// Command shadow_compare replays read-only requests against two deployments of
// the API (typically the live release and a candidate) and reports where their
// responses diverge. Volatile fields such as generation timestamps are ignored.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"reflect"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type target struct {
	Path     string `yaml:"path"`
	Critical bool   `yaml:"critical"`
}

type targetFile struct {
	Ignore  []string `yaml:"ignore"`
	Targets []target `yaml:"targets"`
}

type result struct {
	target    target
	live      int
	candidate int
	sameBody  bool
	err       error
}

func (r result) diverged() bool {
	return r.err != nil || r.live != r.candidate || !r.sameBody
}

func main() {
	var (
		liveBase      string
		candidateBase string
		targetsPath   string
		timeout       time.Duration
	)
	flag.StringVar(&liveBase, "live", "http://localhost:8080", "live deployment base URL")
	flag.StringVar(&candidateBase, "candidate", "http://localhost:8081", "candidate deployment base URL")
	flag.StringVar(&targetsPath, "targets", "scripts/shadow_compare/targets.yaml", "YAML targets file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "per request timeout")
	flag.Parse()

	logr, _ := zap.NewDevelopment()
	defer logr.Sync() //nolint:errcheck

	file, err := loadTargets(targetsPath)
	if err != nil {
		logr.Fatal("load targets", zap.Error(err))
	}
	ignore := make(map[string]struct{}, len(file.Ignore))
	for _, k := range file.Ignore {
		ignore[k] = struct{}{}
	}

	client := &http.Client{Timeout: timeout}
	breaking := 0
	for _, t := range file.Targets {
		res := compare(client, liveBase, candidateBase, t, ignore)
		fields := []zap.Field{
			zap.String("path", t.Path),
			zap.Int("live_status", res.live),
			zap.Int("candidate_status", res.candidate),
			zap.Bool("same_body", res.sameBody),
			zap.Bool("critical", t.Critical),
		}
		switch {
		case res.err != nil:
			logr.Error("request failed", append(fields, zap.Error(res.err))...)
		case res.diverged():
			logr.Warn("responses diverge", fields...)
		default:
			logr.Info("match", fields...)
		}
		if res.diverged() && t.Critical {
			breaking++
		}
	}

	fmt.Printf("%d target(s), %d breaking divergence(s)\n", len(file.Targets), breaking)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) (*targetFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file targetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Targets) == 0 {
		return nil, fmt.Errorf("no targets in %s", path)
	}
	return &file, nil
}

func compare(client *http.Client, liveBase, candidateBase string, t target, ignore map[string]struct{}) result {
	res := result{target: t}
	liveStatus, liveBody, err := fetch(client, liveBase, t.Path)
	if err != nil {
		res.err = fmt.Errorf("live: %w", err)
		return res
	}
	candStatus, candBody, err := fetch(client, candidateBase, t.Path)
	if err != nil {
		res.err = fmt.Errorf("candidate: %w", err)
		return res
	}
	res.live, res.candidate = liveStatus, candStatus
	res.sameBody = equivalent(liveBody, candBody, ignore)
	return res
}

func fetch(client *http.Client, base, path string) (int, []byte, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	resp, err := client.Get(strings.TrimRight(base, "/") + path)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func equivalent(a, b []byte, ignore map[string]struct{}) bool {
	var av, bv interface{}
	errA, errB := json.Unmarshal(a, &av), json.Unmarshal(b, &bv)
	if errA != nil || errB != nil {
		return errA != nil && errB != nil && bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b))
	}
	return reflect.DeepEqual(strip(av, ignore), strip(bv, ignore))
}

// strip drops ignored keys at every depth.
func strip(v interface{}, ignore map[string]struct{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, inner := range val {
			if _, skip := ignore[k]; skip {
				continue
			}
			out[k] = strip(inner, ignore)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, inner := range val {
			out[i] = strip(inner, ignore)
		}
		return out
	default:
		return v
	}
}
