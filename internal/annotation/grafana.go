package annotation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/swxsoc/swxingest/internal/fetch"
	"github.com/swxsoc/swxingest/internal/log"
)

// MissionPlaceholder in a Grafana URL is replaced by the annotation's mission.
const MissionPlaceholder = "{mission}"

// TokenFunc supplies the API token at first use.
type TokenFunc func() (string, error)

// GrafanaSink writes annotations through the Grafana HTTP API.
type GrafanaSink struct {
	baseURL string
	token   TokenFunc
	http    fetch.HTTPDoer
	logger  *slog.Logger

	mu     sync.Mutex
	panels map[string]panelRef
}

type panelRef struct {
	DashboardUID string
	PanelID      int
}

// NewGrafanaSink creates a sink. baseURL may contain {mission}.
func NewGrafanaSink(baseURL string, token TokenFunc, doer fetch.HTTPDoer) *GrafanaSink {
	if doer == nil {
		doer = &http.Client{Timeout: fetch.DefaultTimeout}
	}
	return &GrafanaSink{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    doer,
		logger:  log.WithComponent("grafana"),
		panels:  make(map[string]panelRef),
	}
}

type grafanaAnnotation struct {
	ID           int64    `json:"id,omitempty"`
	DashboardUID string   `json:"dashboardUID"`
	PanelID      int      `json:"panelId"`
	Time         int64    `json:"time"`
	TimeEnd      int64    `json:"timeEnd"`
	Tags         []string `json:"tags"`
	Text         string   `json:"text"`
}

// Create writes a, first deleting same-identity annotations when overwrite is set.
func (g *GrafanaSink) Create(ctx context.Context, a Annotation, overwrite bool) error {
	token, err := g.token()
	if err != nil {
		return err
	}
	base, err := g.base(a.Mission)
	if err != nil {
		return err
	}

	ref, err := g.resolvePanel(ctx, base, token, a.Dashboard, a.Panel)
	if err != nil {
		return err
	}

	start := a.Start.UnixMilli()
	end := a.EndOrStart().UnixMilli()

	if overwrite {
		if err := g.deleteExisting(ctx, base, token, ref, a, start, end); err != nil {
			return err
		}
	}

	body := grafanaAnnotation{
		DashboardUID: ref.DashboardUID,
		PanelID:      ref.PanelID,
		Time:         start,
		TimeEnd:      end,
		Tags:         a.Tags,
		Text:         a.Text,
	}
	if err := g.do(ctx, http.MethodPost, base+"/api/annotations", token, body, nil); err != nil {
		return err
	}

	g.logger.Info("annotation created",
		"dashboard", a.Dashboard, "panel", a.Panel,
		"start", a.Start.Format(time.RFC3339), "tags", a.Tags, "text", a.Text)
	return nil
}

func (g *GrafanaSink) base(mission string) (string, error) {
	if g.baseURL == "" {
		return "", fmt.Errorf("grafana url is not configured")
	}
	if strings.Contains(g.baseURL, MissionPlaceholder) {
		if mission == "" {
			return "", fmt.Errorf("grafana url needs a mission but the annotation has none")
		}
		return strings.ReplaceAll(g.baseURL, MissionPlaceholder, mission), nil
	}
	return g.baseURL, nil
}

func (g *GrafanaSink) deleteExisting(ctx context.Context, base, token string, ref panelRef, a Annotation, start, end int64) error {
	q := url.Values{}
	q.Set("dashboardUID", ref.DashboardUID)
	q.Set("panelId", strconv.Itoa(ref.PanelID))
	q.Set("from", strconv.FormatInt(start, 10))
	q.Set("to", strconv.FormatInt(end, 10))
	q.Set("type", "annotation")
	for _, tag := range a.Tags {
		q.Add("tags", tag)
	}

	var existing []grafanaAnnotation
	if err := g.do(ctx, http.MethodGet, base+"/api/annotations?"+q.Encode(), token, nil, &existing); err != nil {
		return err
	}

	for _, e := range existing {
		if e.Time != start || e.TimeEnd != end || !SameTags(e.Tags, a.Tags) {
			continue
		}
		if err := g.do(ctx, http.MethodDelete, fmt.Sprintf("%s/api/annotations/%d", base, e.ID), token, nil, nil); err != nil {
			return err
		}
		g.logger.Debug("replaced annotation", "id", e.ID)
	}
	return nil
}

func (g *GrafanaSink) resolvePanel(ctx context.Context, base, token, dashboard, panel string) (panelRef, error) {
	key := base + "\x00" + dashboard + "\x00" + panel

	g.mu.Lock()
	ref, ok := g.panels[key]
	g.mu.Unlock()
	if ok {
		return ref, nil
	}

	q := url.Values{}
	q.Set("query", dashboard)
	q.Set("type", "dash-db")
	var hits []struct {
		UID   string `json:"uid"`
		Title string `json:"title"`
	}
	if err := g.do(ctx, http.MethodGet, base+"/api/search?"+q.Encode(), token, nil, &hits); err != nil {
		return panelRef{}, err
	}

	uid := ""
	for _, h := range hits {
		if h.Title == dashboard {
			uid = h.UID
			break
		}
	}
	if uid == "" {
		return panelRef{}, fmt.Errorf("grafana dashboard %q not found", dashboard)
	}

	var dash struct {
		Dashboard struct {
			Panels []grafanaPanel `json:"panels"`
		} `json:"dashboard"`
	}
	if err := g.do(ctx, http.MethodGet, base+"/api/dashboards/uid/"+url.PathEscape(uid), token, nil, &dash); err != nil {
		return panelRef{}, err
	}

	id, ok := findPanel(dash.Dashboard.Panels, panel)
	if !ok {
		return panelRef{}, fmt.Errorf("grafana panel %q not found on dashboard %q", panel, dashboard)
	}

	ref = panelRef{DashboardUID: uid, PanelID: id}
	g.mu.Lock()
	g.panels[key] = ref
	g.mu.Unlock()
	return ref, nil
}

type grafanaPanel struct {
	ID     int            `json:"id"`
	Title  string         `json:"title"`
	Panels []grafanaPanel `json:"panels"`
}

// findPanel searches panels depth-first, descending into collapsed rows.
func findPanel(panels []grafanaPanel, title string) (int, bool) {
	for _, p := range panels {
		if p.Title == title {
			return p.ID, true
		}
		if id, ok := findPanel(p.Panels, title); ok {
			return id, true
		}
	}
	return 0, false
}

func (g *GrafanaSink) do(ctx context.Context, method, target, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode grafana request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return &fetch.ExternalFetchError{URL: target, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return &fetch.ExternalFetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return &fetch.ExternalFetchError{URL: target, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &fetch.ExternalFetchError{URL: target, StatusCode: resp.StatusCode, Err: fmt.Errorf("grafana %s: %s", method, strings.TrimSpace(string(data)))}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &fetch.ExternalFetchError{URL: target, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode json: %w", err)}
		}
	}
	return nil
}
