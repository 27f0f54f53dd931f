// Command enginesmoke drives one Audio Engine against the default
// PortAudio output device: it opens the control-plane listening socket a
// Plugin Host Supervisor subprocess dials into, loads or creates a Song,
// and pumps ProcessBlock from PortAudio's callback. It exists to exercise
// the Engine end to end without a UI attached.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
	"github.com/spf13/pflag"

	"github.com/ticktrack/core/pkg/config"
	"github.com/ticktrack/core/pkg/control"
	"github.com/ticktrack/core/pkg/engine"
	"github.com/ticktrack/core/pkg/model"
	"github.com/ticktrack/core/pkg/projectfile"
	"github.com/ticktrack/core/pkg/songstate"
)

var (
	projectPath   = pflag.String("project", "", "Song file to load (empty: start a fresh empty Song)")
	dotenv        = pflag.String("dotenv", ".env", "optional .env overlay for TICKTRACK_* tuning")
	pluginHostBin = pflag.String("pluginhost", "pluginhost", "path to the pluginhost binary to spawn")
	monitorAddr   = pflag.String("monitor-addr", "", "if set, serve SongState snapshots over websocket at this address (e.g. :8787)")
)

func main() {
	pflag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "enginesmoke"})

	cfg, err := config.Load(*dotenv)
	if err != nil {
		logger.Fatal("config", "err", err)
	}

	song, err := loadOrNewSong(*projectPath)
	if err != nil {
		logger.Fatal("load song", "err", err)
	}

	socketPath := fmt.Sprintf("%s-%d.sock", cfg.SocketPrefix, os.Getpid())
	listener, err := control.Listen(socketPath)
	if err != nil {
		logger.Fatal("listen control socket", "err", err)
	}
	defer listener.Close()

	hostCmd := exec.Command(*pluginHostBin, "-pipe", socketPath, "-dotenv", *dotenv)
	hostCmd.Stdout = os.Stdout
	hostCmd.Stderr = os.Stderr
	if err := hostCmd.Start(); err != nil {
		logger.Fatal("spawn pluginhost", "err", err)
	}
	defer func() { _ = hostCmd.Process.Kill() }()

	conn, err := listener.Accept()
	if err != nil {
		logger.Fatal("accept pluginhost connection", "err", err)
	}
	defer conn.Close()

	bcast := songstate.NewBroadcaster(logger.With("component", "songstate"))
	if *monitorAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/songstate", bcast)
		go func() {
			logger.Info("serving SongState snapshots", "addr", *monitorAddr)
			if err := http.ListenAndServe(*monitorAddr, mux); err != nil {
				logger.Error("monitor server exited", "err", err)
			}
		}()
	}

	eng := engine.New(engine.Config{
		Logger:      logger.With("component", "engine"),
		Conn:        conn,
		Broadcaster: bcast,
	})

	loop := engine.NewCommandLoop(eng, song)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go loop.Run(ctx)
	loop.Send(engine.Command{Kind: engine.CmdPlay})

	if err := portaudio.Initialize(); err != nil {
		logger.Fatal("portaudio init", "err", err)
	}
	defer portaudio.Terminate()

	const framesPerBuffer = 512
	callback := func(out [][]float32) {
		frameCount := len(out[0])
		block, err := eng.ProcessBlock(frameCount)
		if err != nil {
			logger.Warn("process block", "err", err)
			return
		}
		for i := 0; i < frameCount; i++ {
			out[0][i] = block[i*2]
			out[1][i] = block[i*2+1]
		}
	}

	stream, err := portaudio.OpenDefaultStream(0, 2, float64(song.SampleRate), framesPerBuffer, callback)
	if err != nil {
		logger.Fatal("open stream", "err", err)
	}
	defer stream.Close()
	if err := stream.Start(); err != nil {
		logger.Fatal("start stream", "err", err)
	}
	defer stream.Stop()

	logger.Info("engine running", "sampleRate", song.SampleRate, "tracks", len(song.Tracks))
	<-ctx.Done()
}

func loadOrNewSong(path string) (*model.Song, error) {
	if path == "" {
		return model.New("untitled", 120, 4, 44100), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return projectfile.NewManager(projectfile.CurrentVersion).LoadFromJSON(data)
}
