// Command relay is the tunnel relay's entry point: load a TOML config,
// bind the configured listeners, and run until SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/manifoldco/promptui"
	"github.com/pkg/profile"
	"go.uber.org/zap"

	"github.com/novarelay/tunrelay/config"
	"github.com/novarelay/tunrelay/httpLayer"
	"github.com/novarelay/tunrelay/netLayer"
	"github.com/novarelay/tunrelay/proxy/trojan"
	"github.com/novarelay/tunrelay/proxy/vless"
	"github.com/novarelay/tunrelay/session"
	"github.com/novarelay/tunrelay/utils"
)

func main() {
	os.Exit(mainFunc())
}

var (
	configFileName string
	startMProf     bool
	initWizard     bool
)

func init() {
	flag.StringVar(&configFileName, "c", "relay.toml", "config file name")
	flag.BoolVar(&startMProf, "profile", false, "start heap profiling (pkg/profile)")
	flag.BoolVar(&initWizard, "init", false, "interactively scaffold a new config file and exit")
}

func mainFunc() int {
	flag.Parse()

	if initWizard {
		if err := runInitWizard(configFileName); err != nil {
			fmt.Fprintln(os.Stderr, "init failed:", err)
			return 1
		}
		return 0
	}

	if startMProf {
		p := profile.Start(profile.MemProfile, profile.MemProfileRate(1), profile.NoShutdownHook)
		defer p.Stop()
	}

	path := configFileName
	if !utils.FileExist(path) {
		path = utils.GetFilePath(configFileName)
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config failed:", err)
		return 1
	}

	utils.InitLog(utils.LogConfig{
		Level:      cfg.App.LogLevelOrDefault(),
		Path:       cfg.App.LogPath,
		MaxSizeMB:  cfg.App.LogMaxSizeMB,
		MaxBackups: cfg.App.LogMaxBackups,
	})
	if ce := utils.CanLogInfo("relay starting"); ce != nil {
		ce.Write(zap.Int("listeners", len(cfg.Listeners)))
	}

	resolver := &netLayer.Resolver{Servers: cfg.App.DNSServers}
	dialer := &netLayer.Dialer{Resolver: resolver}

	ctx, cancel := context.WithCancel(context.Background())

	listeners, err := buildListeners(cfg, dialer)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad listener config:", err)
		cancel()
		return 1
	}

	for _, l := range listeners {
		l := l
		go l.Serve(ctx)
	}

	var udp *session.UDPForwarder
	if cfg.UDP != nil {
		udp = &session.UDPForwarder{
			Upstream: &net.UDPAddr{IP: net.ParseIP(cfg.UDP.TargetHost), Port: cfg.UDP.TargetPort},
			IdleTime: time.Duration(cfg.UDP.IdleMs) * time.Millisecond,
		}
		if err := udp.Listen(":" + strconv.Itoa(cfg.UDP.ListenPort)); err != nil {
			fmt.Fprintln(os.Stderr, "udp bind failed:", err)
			cancel()
			return 1
		}
		go udp.Serve(ctx)
	}

	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, os.Interrupt, syscall.SIGTERM)
	<-osSignals

	if ce := utils.CanLogInfo("shutdown signal received"); ce != nil {
		ce.Write()
	}
	cancel()
	if udp != nil {
		udp.Close()
	}
	time.Sleep(100 * time.Millisecond)

	return 0
}

func buildListeners(cfg config.Config, dialer *netLayer.Dialer) ([]*session.Listener, error) {
	out := make([]*session.Listener, 0, len(cfg.Listeners))
	for _, lc := range cfg.Listeners {
		sessCfg := session.Config{
			HandshakeTimeout:   time.Duration(lc.HandshakeTimeoutMs) * time.Millisecond,
			ConnectTimeout:     time.Duration(lc.ConnectTimeoutMs) * time.Millisecond,
			UpstreamIdleTime:   time.Duration(lc.UpstreamIdleTimeoutMs) * time.Millisecond,
			MaxHandshakeBuffer: lc.MaxHandshakeBufferBytes,
			Dialer:             dialer,
		}

		proto := session.Protocol(lc.Protocol)
		l := &session.Listener{
			Protocol:   proto,
			WSPath:     lc.WSPath,
			ProxyProto: lc.ProxyProto,
		}

		switch proto {
		case session.ProtoVlessWS:
			sessCfg.SendSignalByte = true
			l.Parser = session.VlessParser(vless.NewAllowList(lc.AllowedUUIDs))
		case session.ProtoTrojanWS:
			sessCfg.SendSignalByte = true
			l.Parser = session.TrojanParser(trojan.NewAllowList(lc.AllowedTrojanHashes))
		case session.ProtoRawTCP:
			sessCfg.SendSignalByte = true
			l.Parser = session.RawTCPParser()
		case session.ProtoHTTPProxy:
			sessCfg.HandshakeFailBytes = httpLayer.BadRequest
			l.Parser = session.HTTPProxyParser()
		default:
			return nil, utils.ErrInErr{ErrDesc: "unknown protocol", Data: lc.Protocol}
		}
		l.SessionCfg = sessCfg

		if err := l.Listen(":" + strconv.Itoa(lc.ListenPort)); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// runInitWizard interactively scaffolds a minimal relay.toml, seeding a
// fresh UUID for the allow-list so a first run has something to test
// against immediately.
func runInitWizard(path string) error {
	protoPrompt := promptui.Select{
		Label: "Protocol",
		Items: []string{"vless-ws", "trojan-ws", "rawtcp", "http-proxy"},
	}
	_, proto, err := protoPrompt.Run()
	if err != nil {
		return err
	}

	portPrompt := promptui.Prompt{Label: "Listen port", Default: "8100"}
	portStr, err := portPrompt.Run()
	if err != nil {
		return err
	}

	generated := utils.GenerateUUIDv4()
	uuidPrompt := promptui.Prompt{
		Label:    "User UUID",
		Default:  utils.UUIDToStr(generated[:]),
		Validate: utils.WrapFuncForPromptUI(govalidator.IsUUID),
	}
	uuidStr, err := uuidPrompt.Run()
	if err != nil {
		return err
	}

	content := fmt.Sprintf(`[app]
log_level = 1

[[listener]]
listen_port = %s
protocol = "%s"
allowed_uuids = ["%s"]
`, portStr, proto, uuidStr)

	return os.WriteFile(path, []byte(content), 0644)
}
