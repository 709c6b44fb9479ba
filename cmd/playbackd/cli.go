package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"

	"github.com/OCAP2/launch-telemetry/internal/api"
	"github.com/OCAP2/launch-telemetry/internal/config"
	"github.com/OCAP2/launch-telemetry/internal/logging"
	"github.com/OCAP2/launch-telemetry/internal/mission"
	"github.com/OCAP2/launch-telemetry/internal/transport/websocket"
	"github.com/OCAP2/launch-telemetry/pkg/core"
	"github.com/OCAP2/launch-telemetry/pkg/streaming"
)

const fpsReportInterval = time.Second

var errStreamClosed = errors.New("subscriber stream closed by server")

func cliLogger() *slog.Logger {
	m := logging.NewSlogManager()
	m.Setup(os.Stderr, viper.GetString("logLevel"), nil)
	return m.Logger()
}

// runImport validates mission files and saves them into the SQL store.
func runImport(ctx context.Context, paths []string, out io.Writer) error {
	if len(paths) == 0 {
		return errors.New("import: no mission files given")
	}

	storeCfg := config.GetStoreConfig()
	store, closeStore, err := createMissionStore(storeCfg, config.GetDBConfig(), cliLogger())
	if err != nil {
		return err
	}
	defer closeStore()

	saver, ok := store.(missionSaver)
	if !ok {
		return fmt.Errorf("%w: %s", errReadOnly, storeCfg.Type)
	}

	var result *multierror.Error
	for _, path := range paths {
		id, err := importMission(ctx, saver, path)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", path, err))
			continue
		}
		fmt.Fprintf(out, "imported %s from %s\n", id, path)
	}
	return result.ErrorOrNil()
}

func importMission(ctx context.Context, saver missionSaver, path string) (string, error) {
	m, err := mission.ReadFile(path)
	if err != nil {
		return "", err
	}
	if m.MissionID == "" {
		m.MissionID = missionIDFromPath(path)
	}
	if err := mission.Validate(m); err != nil {
		return "", fmt.Errorf("%w %s: %w", mission.ErrInvalid, m.MissionID, err)
	}
	if err := saver.Save(ctx, m); err != nil {
		return "", err
	}
	return m.MissionID, nil
}

func missionIDFromPath(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), ".gz")
	return strings.TrimSuffix(name, ".json")
}

// runControl posts one control message. The payload is joined from the
// remaining args so unquoted JSON with spaces still works.
func runControl(ctx context.Context, server string, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("control: message type required")
	}

	env := streaming.Envelope{Type: args[0]}
	if len(args) > 1 {
		payload := []byte(strings.Join(args[1:], " "))
		if !json.Valid(payload) {
			return fmt.Errorf("control: payload is not valid JSON: %s", payload)
		}
		env.Payload = payload
	}
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}

	resp, err := api.NewClient(server).SendRaw(ctx, body)
	if err != nil {
		return err
	}
	return printJSON(out, resp)
}

func runStatus(ctx context.Context, server string, out io.Writer) error {
	status, err := api.NewClient(server).Status(ctx)
	if err != nil {
		return err
	}
	return printJSON(out, status)
}

// runWatch subscribes to the given comma separated properties and prints a
// line per message until interrupted.
func runWatch(ctx context.Context, server string, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("watch: properties required")
	}
	props := strings.Split(args[0], ",")

	hz := float64(api.DefaultSubscriberHz)
	if len(args) > 1 {
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("watch: invalid hz %q: %w", args[1], err)
		}
		hz = v
	}

	u, err := api.NewClient(server).SubscribeURL("", hz, props)
	if err != nil {
		return err
	}
	conn, err := websocket.Dial(ctx, u, cliLogger())
	if err != nil {
		return err
	}
	defer conn.Close()

	return watch(ctx, conn, out, fpsReportInterval)
}

// watch prints inbound messages and reports the receive rate back as fps.
func watch(ctx context.Context, t streaming.Transport, out io.Writer, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	frames := 0
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-t.Receive():
			if !ok {
				return errStreamClosed
			}
			frames++
			fmt.Fprintln(out, summarize(msg))
		case now := <-ticker.C:
			fps := float64(frames) / now.Sub(last).Seconds()
			frames, last = 0, now
			if err := t.Send(streaming.Fps{Fps: fps}); err != nil {
				return fmt.Errorf("report fps: %w", err)
			}
		}
	}
}

// summarize renders one subscriber message as a single line.
func summarize(msg streaming.Message) string {
	switch m := msg.(type) {
	case streaming.InitialData:
		return fmt.Sprintf("%s mission=%s t=%.2fs events=%d %s",
			m.MessageType(), m.MissionID, m.MissionTimeSec, len(m.MissionEvents), countSamples(m.MissionData))
	case streaming.BatchedData:
		return fmt.Sprintf("%s t=%.2fs %s", m.MessageType(), m.MissionTimeSec, countSamples(m.MissionData))
	default:
		return msg.MessageType()
	}
}

func countSamples(data core.Batch) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + strconv.Itoa(len(data[k]))
	}
	return strings.Join(parts, " ")
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
