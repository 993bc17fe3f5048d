// Command clockctl drives a running attendance agent over its local
// control API.
//
// Usage:
//
//	clockctl [--addr=http://localhost:8080] <command> [args]
//
// Commands:
//
//	status                      print device status
//	clock <worker-id> <IN|OUT>  record a clock action
//	can-clock [site-id]         preview the geofence verdict
//	sync                        push queued events now
//	refresh                     re-fetch site and worker catalogs
//	sites                       list cached sites
//	workers                     list cached workers
//	recent [n]                  list the n most recent events (default 20)
//	watch                       follow the pending counter
//	send-test <worker-id>       submit one synthetic event straight to the backend
//
// send-test reads BACKEND_URL, BACKEND_USERNAME, BACKEND_PASSWORD and
// SITE_ID from the environment, like the agent itself.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"clockout.agent/internal/api/handler"
	"clockout.agent/internal/config"
	"clockout.agent/internal/core"
	"clockout.agent/internal/core/model"
	"clockout.agent/internal/remote"
	"clockout.agent/internal/syncer"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "agent control API base URL")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	c := &control{
		base:   strings.TrimRight(*addr, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
	}

	var err error
	switch args[0] {
	case "status":
		err = c.status()
	case "clock":
		err = c.clock(args[1:])
	case "can-clock":
		err = c.canClock(args[1:])
	case "sync":
		err = c.sync()
	case "refresh":
		err = c.refresh()
	case "sites":
		err = c.sites()
	case "workers":
		err = c.workers()
	case "recent":
		err = c.recent(args[1:])
	case "watch":
		err = c.watch()
	case "send-test":
		err = sendTest(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "clockctl: unknown command %q\n", args[0])
		flag.Usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "clockctl:", err)
		os.Exit(1)
	}
}

type control struct {
	base   string
	client *http.Client
}

func (c *control) get(path string, out any) error {
	resp, err := c.client.Get(c.base + "/api/v1" + path)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func (c *control) post(path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(raw)
	}

	resp, err := c.client.Post(c.base+"/api/v1"+path, "application/json", payload)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

// decode reads either the expected body or the agent's error envelope.
func decode(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr handler.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Code == "" {
			return fmt.Errorf("agent returned status %d", resp.StatusCode)
		}
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *control) status() error {
	var st handler.StatusResponse
	if err := c.get("/status", &st); err != nil {
		return err
	}

	fmt.Printf("device:   %s\n", st.DeviceID)
	fmt.Printf("pending:  %d\n", st.Pending)
	if st.Site != nil {
		fmt.Printf("site:     %s (id %d, radius %.0fm)\n", st.Site.Name, st.Site.ID, st.Site.RadiusM)
	} else {
		fmt.Printf("site:     %s\n", st.SiteError)
	}
	if st.LastSync != nil {
		fmt.Printf("last sync: %s submitted=%d remaining=%d",
			st.LastSync.At.Format(time.RFC3339), st.LastSync.Submitted, st.LastSync.Remaining)
		if st.LastSync.Error != "" {
			fmt.Printf(" error=%q", st.LastSync.Error)
		}
		fmt.Println()
	} else {
		fmt.Println("last sync: never")
	}
	if st.CatalogRefreshedAt != "" {
		fmt.Printf("catalogs: refreshed %s\n", st.CatalogRefreshedAt)
	}
	if st.BackendUser != "" {
		fmt.Printf("backend:  logged in as %s\n", st.BackendUser)
	}
	return nil
}

func (c *control) clock(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: clockctl clock <worker-id> <IN|OUT>")
	}
	workerID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("worker id must be an integer: %q", args[0])
	}

	var ev model.AttendanceEvent
	req := handler.ClockRequest{WorkerID: workerID, Kind: strings.ToUpper(args[1])}
	if err := c.post("/clock", req, &ev); err != nil {
		return err
	}

	verdict := "valid"
	if !ev.Valid {
		verdict = "OUT OF FENCE"
	}
	distance := "n/a"
	if ev.DistanceM != nil {
		distance = fmt.Sprintf("%.0fm", *ev.DistanceM)
	}
	fmt.Printf("event %d: %s %s at %s (%s, distance %s)\n",
		ev.ID, ev.Kind, ev.WorkerName, ev.Timestamp, verdict, distance)
	return nil
}

func (c *control) canClock(args []string) error {
	path := "/can-clock"
	if len(args) > 0 {
		path += "?site_id=" + args[0]
	}

	var adv core.Advisory
	if err := c.get(path, &adv); err != nil {
		return err
	}

	if adv.Allowed {
		fmt.Printf("allowed at %s: %.0fm from center, radius %.0fm\n", adv.SiteName, adv.DistanceM, adv.RadiusM)
	} else {
		fmt.Printf("blocked at %s: %s\n", adv.SiteName, adv.Reason)
	}
	return nil
}

func (c *control) sync() error {
	var res syncer.Result
	if err := c.post("/sync", nil, &res); err != nil {
		return err
	}
	fmt.Printf("submitted %d, %d remaining\n", res.Submitted, res.Remaining)
	return nil
}

func (c *control) refresh() error {
	if err := c.post("/catalog/refresh", nil, nil); err != nil {
		return err
	}
	fmt.Println("catalogs refreshed")
	return nil
}

func (c *control) sites() error {
	var sites []model.Site
	if err := c.get("/sites", &sites); err != nil {
		return err
	}
	for _, s := range sites {
		fmt.Printf("%6d  %-30s  %9.4f %9.4f  r=%.0fm\n", s.ID, s.Name, s.Lat, s.Lon, s.RadiusM)
	}
	return nil
}

func (c *control) workers() error {
	var workers []model.Worker
	if err := c.get("/workers", &workers); err != nil {
		return err
	}
	for _, w := range workers {
		state := "active"
		if !w.IsActive {
			state = "inactive"
		}
		fmt.Printf("%6d  %-30s  site=%d  %s\n", w.ID, w.Name, w.SiteID, state)
	}
	return nil
}

func (c *control) recent(args []string) error {
	limit := 20
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("limit must be an integer: %q", args[0])
		}
		limit = parsed
	}

	var events []model.AttendanceEvent
	if err := c.get(fmt.Sprintf("/events/recent?limit=%d", limit), &events); err != nil {
		return err
	}
	for _, ev := range events {
		flags := ""
		if !ev.Valid {
			flags += " INVALID"
		}
		if !ev.Synced {
			flags += " queued"
		}
		fmt.Printf("%6d  %-3s  %-25s  %s%s\n", ev.ID, ev.Kind, ev.WorkerName, ev.Timestamp, flags)
	}
	return nil
}

func (c *control) watch() error {
	wsURL := strings.Replace(c.base, "http", "ws", 1) + "/api/v1/status/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", wsURL, err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	for {
		var msg struct {
			Pending int `json:"pending"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		fmt.Printf("%s  pending=%d\n", time.Now().Format(time.TimeOnly), msg.Pending)
	}
}

func sendTest(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: clockctl send-test <worker-id>")
	}
	workerID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("worker id must be an integer: %q", args[0])
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := remote.NewHTTPClient(cfg.BackendURL, cfg.BackendUsername, cfg.BackendPassword, cfg.HTTPTimeout)
	ack, err := client.SubmitEvent(ctx, remote.EventUpload{
		WorkerID:       workerID,
		SiteID:         cfg.SiteID,
		DeviceID:       "clockctl",
		EventType:      string(model.KindIn),
		EventTimestamp: model.FormatTimestamp(time.Now()),
		Lat:            cfg.SimLat,
		Lon:            cfg.SimLon,
		AccuracyM:      cfg.SimAccuracyM,
		Source:         "GPS",
	})
	if err != nil {
		return fmt.Errorf("submitting test event: %w", err)
	}

	fmt.Printf("backend acknowledged test event with id %d\n", ack.ID)
	return nil
}
