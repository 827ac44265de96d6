// Command serialdock is a small terminal for the sessions package: it lists
// serial ports, opens one, streams its read events as JSON lines and
// forwards stdin lines to the device.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/serialdock/sessions"
)

func main() {
	list := flag.Bool("list", false, "list available serial ports and exit")
	device := flag.String("device", "/dev/ttyUSB0", "serial device path")
	baud := flag.Int("baud", 9600, "baud rate")
	dataBits := flag.Int("databits", 8, "data bits (5-8)")
	parity := flag.String("parity", "", "parity (Odd, Even; empty for none)")
	stopBits := flag.Int("stopbits", 1, "stop bits (1 or 2)")
	flow := flag.String("flow", "", "flow control (Software, Hardware; empty for none)")
	timeout := flag.Duration("timeout", 200*time.Millisecond, "device read timeout and loop pacing")
	size := flag.Int("size", 1024, "read buffer size in bytes")
	send := flag.String("send", "", "write this string, keep streaming reads")
	eol := flag.String("eol", "\r\n", "line ending appended to stdin writes")
	logFile := flag.String("log-file", "", "also log to this rotated file")
	metricsEvery := flag.Duration("metrics-every", 0, "emit a metrics snapshot at this interval (0 disables)")
	verbose := flag.Bool("v", false, "debug logging")

	flag.Parse()

	log := newLogger(*logFile, *verbose)

	mgr, err := sessions.NewManager(sessions.WithLogger(log))
	if err != nil {
		log.Fatal().Err(err).Msg("creating session manager")
	}
	defer mgr.Shutdown()

	if *list {
		for _, p := range mgr.AvailablePorts() {
			fmt.Println(p)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = mgr.Open(*device, *baud, sessions.OpenOptions{
		DataBits:    *dataBits,
		Parity:      *parity,
		StopBits:    *stopBits,
		FlowControl: *flow,
		Timeout:     *timeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("opening port")
	}

	events, unsubscribe, err := mgr.SubscribeRead(*device)
	if err != nil {
		log.Fatal().Err(err).Msg("subscribing to read events")
	}
	defer unsubscribe()

	if err = mgr.Read(*device, sessions.ReadOptions{Timeout: *timeout, Size: *size}); err != nil {
		log.Fatal().Err(err).Msg("starting read loop")
	}

	go printEvents(events)

	if *metricsEvery > 0 {
		b := mgr.BroadcastMetrics(*metricsEvery, 4)
		defer b.Stop()
		go printSnapshots(b.Snapshots())
	}

	if *send != "" {
		if _, err = mgr.Write(*device, *send); err != nil {
			log.Fatal().Err(err).Msg("writing to port")
		}
	}

	go forwardStdin(ctx, mgr, *device, *eol, log)

	<-ctx.Done()
	log.Info().Msg("shutting down")
	if err = mgr.CloseAll(); err != nil {
		log.Error().Err(err).Msg("closing ports")
	}
}

func newLogger(logFile string, verbose bool) zerolog.Logger {
	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	if logFile != "" {
		w = zerolog.MultiLevelWriter(w, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		})
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func printEvents(events <-chan sessions.ReadEvent) {
	for ev := range events {
		line, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		fmt.Println(string(line))
	}
}

func printSnapshots(snapshots <-chan sessions.Snapshot) {
	for snap := range snapshots {
		line, err := json.Marshal(snap)
		if err != nil {
			continue
		}
		fmt.Fprintln(os.Stderr, string(line))
	}
}

func forwardStdin(ctx context.Context, mgr *sessions.Manager, device, eol string, log zerolog.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		if _, err := mgr.Write(device, line+eol); err != nil {
			log.Error().Err(err).Msg("write failed")
		}
	}
}
