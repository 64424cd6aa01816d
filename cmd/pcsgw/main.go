// Command pcsgw is the GOOSE publisher/subscriber gateway (spec.md §1):
// it bridges a PLC over UDP and a fleet of simulated PCS devices over two
// redundant GOOSE LANs. It takes no CLI arguments (spec.md §6.6); every
// input is the TOML config file at a fixed, conventional path.
package main

import (
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/runZeroInc/pcsgw/internal/config"
	"github.com/runZeroInc/pcsgw/internal/kernelcaps"
	"github.com/runZeroInc/pcsgw/internal/mapping"
	"github.com/runZeroInc/pcsgw/internal/nameplate"
	"github.com/runZeroInc/pcsgw/internal/rtthread"
	"github.com/runZeroInc/pcsgw/pkg/bufpool"
	"github.com/runZeroInc/pcsgw/pkg/lanio"
	"github.com/runZeroInc/pcsgw/pkg/metrics"
	"github.com/runZeroInc/pcsgw/pkg/pcsstore"
	"github.com/runZeroInc/pcsgw/pkg/plcbridge"
	"github.com/runZeroInc/pcsgw/pkg/resetsignal"
	"github.com/runZeroInc/pcsgw/pkg/retransmit"
	"github.com/runZeroInc/pcsgw/pkg/validity"
	"github.com/runZeroInc/pcsgw/pkg/workerpool"
)

// configPath is the conventional location spec.md §6.5 assumes; there is
// no flag to override it (spec.md §6.6: no CLI arguments).
const configPath = "/etc/pcsgw/pcsgw.toml"

// dispatchDepth bounds the decode dispatch channel (spec.md §4.5/§4.6: a
// bounded channel between receiver and worker pool, drops counted rather
// than applying backpressure to the receiver).
const dispatchDepth = 256

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(configPath)
	if err != nil {
		log.WithError(err).Fatal("pcsgw: loading configuration")
	}
	log.WithField("software_version", cfg.SoftwareVersion).Info("pcsgw: starting")

	nameplates, err := nameplate.Load(cfg.NameplateFile, log)
	if err != nil {
		log.WithError(err).Fatal("pcsgw: loading nameplates")
	}
	if len(nameplates) == 0 {
		log.Fatal("pcsgw: no usable nameplate rows, nothing to serve")
	}

	fieldMap, err := mapping.LoadFieldMap(cfg.FieldMapFile)
	if err != nil {
		log.WithError(err).Fatal("pcsgw: loading field map")
	}
	bytePositions, err := mapping.LoadBytePositionMap(cfg.BytePositionFile)
	if err != nil {
		log.WithError(err).Fatal("pcsgw: loading byte-position map")
	}

	caps, err := kernelcaps.Detect()
	if err != nil {
		log.WithError(err).Warn("pcsgw: kernel capability detection degraded, assuming no RT extensions")
	}

	ttlGrace := time.Duration(cfg.TTLGraceMS) * time.Millisecond
	validityInterval := time.Duration(cfg.ValidityMS) * time.Millisecond
	storeA := pcsstore.New(nameplates, ttlGrace, bytePositions)
	storeB := pcsstore.New(nameplates, ttlGrace, bytePositions)

	pool := bufpool.New(4096)
	reset := resetsignal.New()

	receiverA, errA := lanio.OpenReceiver(lanio.LANA, cfg.LANAInterface, pool)
	if errA != nil {
		log.WithError(errA).Error("pcsgw: LAN A receiver unavailable, continuing on LAN B only")
	}
	receiverB, errB := lanio.OpenReceiver(lanio.LANB, cfg.LANBInterface, pool)
	if errB != nil {
		log.WithError(errB).Error("pcsgw: LAN B receiver unavailable, continuing on LAN A only")
	}
	if errA != nil && errB != nil {
		log.Fatal("pcsgw: neither LAN receiver could be opened")
	}

	transmitterA, errA := lanio.OpenTransmitter(lanio.LANA, cfg.LANAInterface)
	if errA != nil {
		log.WithError(errA).Error("pcsgw: LAN A transmitter unavailable")
	}
	transmitterB, errB := lanio.OpenTransmitter(lanio.LANB, cfg.LANBInterface)
	if errB != nil {
		log.WithError(errB).Error("pcsgw: LAN B transmitter unavailable")
	}

	pmsSubs := workerpool.NewPMSSubscriptions(workerpool.BuildPMSMapping(nameplates))
	workers := workerpool.New(cfg.WorkerCount, storeA, storeB, pmsSubs, ttlGrace, reset, log)

	sweeper := validity.New(storeA, storeB, validityInterval, log)

	sources := retransmit.FromNameplates(nameplates)
	floor := time.Duration(cfg.RetransmitFloorMS) * time.Millisecond
	scheduler := retransmit.New(sources, fieldMap, storeA, transmitterA, transmitterB, reset, floor, log)

	bridge, err := plcbridge.New(storeA, storeB, reset, cfg.PLCListenAddr, cfg.PLCEgressAddr, log)
	if err != nil {
		log.WithError(err).Fatal("pcsgw: PLC bridge sockets unavailable")
	}

	collector := metrics.New(pool, receiverA, receiverB, transmitterA, transmitterB, storeA, storeB, scheduler, bridge)
	prometheus.MustRegister(collector)

	stop := make(chan struct{})
	var wg sync.WaitGroup

	dispatch := make(chan lanio.Frame, dispatchDepth)

	runPinned := func(name string, core int, fn func(stop <-chan struct{})) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.WithFields(logrus.Fields{"thread": name, "core": core}).Info("pcsgw: starting pinned thread")
			rtthread.Run(core, 0, stop, fn, caps, log)
		}()
	}

	if receiverA != nil {
		runPinned("receiver-a", 1, func(stop <-chan struct{}) {
			if err := receiverA.Run(stop, dispatch); err != nil {
				log.WithError(err).Error("pcsgw: LAN A receiver exited")
			}
		})
	}
	if receiverB != nil {
		runPinned("receiver-b", 2, func(stop <-chan struct{}) {
			if err := receiverB.Run(stop, dispatch); err != nil {
				log.WithError(err).Error("pcsgw: LAN B receiver exited")
			}
		})
	}

	runPinned("workerpool", 3, func(stop <-chan struct{}) {
		workers.Run(stop, dispatch)
	})
	runPinned("scheduler", 4, func(stop <-chan struct{}) {
		scheduler.Run(stop)
	})
	runPinned("sweeper", -1, func(stop <-chan struct{}) {
		sweeper.Run(stop)
	})
	runPinned("plc-ingress", -1, func(stop <-chan struct{}) {
		if err := bridge.RunIngress(stop); err != nil {
			log.WithError(err).Error("pcsgw: PLC ingress exited")
		}
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		egressTicker := time.NewTicker(validityInterval / 5)
		defer egressTicker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-egressTicker.C:
				if err := bridge.SendImage(); err != nil {
					log.WithError(err).Warn("pcsgw: PLC egress send failed")
				}
			}
		}
	}()

	if cfg.MetricsListenAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.MetricsListenAddr, Handler: mux}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("pcsgw: metrics HTTP server exited")
			}
		}()
		go func() {
			<-stop
			srv.Close()
		}()
		log.WithField("addr", cfg.MetricsListenAddr).Info("pcsgw: metrics endpoint enabled")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("pcsgw: shutdown signal received, draining")
	close(stop)
	close(dispatch)

	if receiverA != nil {
		receiverA.Close()
	}
	if receiverB != nil {
		receiverB.Close()
	}
	if transmitterA != nil {
		transmitterA.Close()
	}
	if transmitterB != nil {
		transmitterB.Close()
	}
	bridge.Close()

	wg.Wait()
	log.Info("pcsgw: shutdown complete")
}
