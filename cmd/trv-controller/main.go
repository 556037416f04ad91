// Command trv-controller runs the thermostatic radiator valve controller:
// it models the valve position from room temperature, occupancy and light,
// publishes valve commands and stats over MQTT, optionally drives a boiler
// relay in hub mode, and serves a local status page.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/trv-controller/internal/boiler"
	"github.com/sweeney/trv-controller/internal/config"
	"github.com/sweeney/trv-controller/internal/control"
	"github.com/sweeney/trv-controller/internal/gpio"
	"github.com/sweeney/trv-controller/internal/mqtt"
	"github.com/sweeney/trv-controller/internal/occupancy"
	"github.com/sweeney/trv-controller/internal/schedule"
	"github.com/sweeney/trv-controller/internal/sensors"
	"github.com/sweeney/trv-controller/internal/stats"
	"github.com/sweeney/trv-controller/internal/status"
	"github.com/sweeney/trv-controller/internal/store"
	"github.com/sweeney/trv-controller/internal/valve"
	"github.com/sweeney/trv-controller/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config) error {
	// Settings and statistics survive restarts in the byte store; fall
	// back to memory-only when the path is unusable.
	var st store.Store
	fileStore, err := store.OpenFileStore(cfg.StorePath)
	if err != nil {
		log.Printf("store %s unavailable (%v), settings will not persist", cfg.StorePath, err)
		st = store.NewMemStore()
	} else {
		st = fileStore
	}

	nodeID := cfg.NodeID
	if nodeID == "" {
		nodeID = loadOrCreateNodeID(st)
	}

	hub := boiler.NewHub(st)
	if cfg.HubMinOnMins > 0 {
		hub.SetMinBoilerOnMins(cfg.HubMinOnMins)
	}

	statistics := stats.New(st)
	sampler := stats.NewSampler(statistics)

	occ := occupancy.New(occupancy.DefaultConfig())

	tempSensor := openTempSensor(cfg)
	defer tempSensor.Close()

	light := sensors.NewLightTracker(openLightSensor(cfg))
	humidity := sensors.NewHumidityTracker(openHumiditySensor(cfg))
	voltage := openVoltageSensor(cfg)

	tunables := control.DefaultTunables()
	temps := control.NewTempControl(tunables, st)
	sched := schedule.New(st)

	radValve := control.NewRadValve(control.RadValveConfig{
		Tunables:    tunables,
		ValveParams: valve.DefaultParams(),
		Temps:       temps,
		Store:       st,
		Occupancy:   occ,
		Ambient:     light,
		Schedule:    sched,
		Stats:       statistics,
		Glacial:     cfg.Glacial,
		MaxPCOpen:   cfg.MaxValvePC,
	})

	publisher, err := mqtt.NewRealPublisher(cfg.Broker, nodeID)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	if hub.Enabled() {
		if err := publisher.SubscribeCallForHeat(hub.RemoteCallForHeat); err != nil {
			return fmt.Errorf("hub subscribe: %w", err)
		}
		log.Printf("hub mode: min boiler on %dm", hub.MinBoilerOnMins())
	}

	relay, err := openRelay(cfg)
	if err != nil {
		return fmt.Errorf("init relay: %w", err)
	}
	defer relay.Close()

	motion, err := openMotion(cfg)
	if err != nil {
		return fmt.Errorf("init pir: %w", err)
	}
	defer motion.Close()
	go func() {
		for range motion.Events() {
			occ.MarkAsOccupied()
		}
	}()

	tracker := status.NewTracker(time.Now(), nodeID, status.Config{
		Broker:     cfg.Broker,
		HTTPPort:   cfg.HTTPAddr,
		StorePath:  cfg.StorePath,
		HubEnabled: hub.Enabled(),
	})

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, controls{rv: radValve, temps: temps})
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTPAddr)
	}

	log.Printf("started: node=%s broker=%s tick=%v store=%s", nodeID, cfg.Broker, cfg.TickPeriod, cfg.StorePath)

	ticker := time.NewTicker(cfg.TickPeriod)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	deps := loopDeps{
		cfg:        cfg,
		st:         st,
		nodeID:     nodeID,
		hub:        hub,
		sampler:    sampler,
		occ:        occ,
		tempSensor: tempSensor,
		light:      light,
		humidity:   humidity,
		voltage:    voltage,
		radValve:   radValve,
		publisher:  publisher,
		relay:      relay,
		tracker:    tracker,
		now:        time.Now,
	}
	return runLoop(deps, ticker.C, sigCh)
}

// controls adapts the controller to the web API surface.
type controls struct {
	rv    *control.RadValve
	temps *control.TempControl
}

func (c controls) SetWarmMode(warm bool) error {
	c.rv.SetWarmMode(warm)
	return nil
}

func (c controls) StartBake() error {
	c.rv.StartBake()
	return nil
}

func (c controls) SetWarmC(v uint8) error {
	c.rv.MarkUserControlUse()
	return c.temps.SetWarmC(v)
}

func (c controls) SetFrostC(v uint8) error {
	c.rv.MarkUserControlUse()
	return c.temps.SetFrostC(v)
}

type loopDeps struct {
	cfg        config.Config
	st         store.Store
	nodeID     string
	hub        *boiler.Hub
	sampler    *stats.Sampler
	occ        *occupancy.Tracker
	tempSensor sensors.TemperatureSensor
	light      *sensors.LightTracker
	humidity   *sensors.HumidityTracker
	voltage    sensors.VoltageSensor
	radValve   *control.RadValve
	publisher  mqtt.Publisher
	relay      gpio.Relay
	tracker    *status.Tracker
	now        func() time.Time
}

// Stats sampling minutes within each hour: an early pre-sample and a full
// sample near the end of the hour.
const (
	preSampleMinute  = 26
	fullSampleMinute = 56
)

func runLoop(d loopDeps, tick <-chan time.Time, sig <-chan os.Signal) error {
	mqttStatus, _ := d.publisher.(mqtt.ConnectionStatus)
	lastTempC16 := int16(stats.UnsetInt16)
	lastStats := d.now()
	humidityWasHigh := false

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			// Boiler off before anything else.
			if err := d.relay.Set(false); err != nil {
				log.Printf("relay release error: %v", err)
			}
			event := mqtt.SystemEvent{
				Timestamp: d.now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if mqttStatus != nil {
				d.tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
			snap := d.tracker.Snapshot()
			event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			if err := d.publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			started := d.now()

			if c16, err := d.tempSensor.ReadTempC16(); err != nil {
				log.Printf("temperature read error: %v", err)
			} else {
				lastTempC16 = c16
			}
			if lastTempC16 == stats.UnsetInt16 {
				// No reading yet; nothing sensible to control on.
				continue
			}

			if err := d.light.Tick(); err != nil {
				log.Printf("%v", err)
			}
			if err := d.humidity.Tick(); err != nil {
				log.Printf("%v", err)
			}
			// A humidity spike (shower, cooking) is weak occupancy evidence;
			// only the rising edge counts, not the hours drying out after.
			humidityHigh := d.humidity.IsHighWithHyst()
			if humidityHigh && !humidityWasHigh {
				d.occ.MarkAsPossiblyOccupied()
			}
			humidityWasHigh = humidityHigh
			occPC := d.occ.Tick()

			supplyMV := 0
			if d.voltage != nil {
				if mv, err := d.voltage.ReadMillivolts(); err == nil {
					supplyMV = mv
				}
			}
			// A sagging battery slows valve movement to the glacial rate.
			d.radValve.SetGlacial(d.cfg.Glacial || sensors.IsLow(d.voltage))
			d.radValve.ComputeCallForHeat(lastTempC16)

			localReallyOpen := d.radValve.IsReallyOpen()
			relayOn := localReallyOpen
			if d.hub.Enabled() {
				relayOn = d.hub.Tick(localReallyOpen)
			}
			if err := d.relay.Set(relayOn); err != nil {
				log.Printf("relay error: %v", err)
			}

			if d.radValve.ValveMoved() {
				event := mqtt.ValveEvent{
					Timestamp:      started,
					NodeID:         d.nodeID,
					TargetC:        d.radValve.TargetTempC(),
					TempC16:        lastTempC16,
					PercentOpen:    d.radValve.PercentOpen(),
					CallingForHeat: d.radValve.IsCallingForHeat(),
				}
				log.Printf("valve: %d%% target=%dC temp=%.2fC heat=%v",
					event.PercentOpen, event.TargetC, float64(event.TempC16)/16, event.CallingForHeat)
				if err := d.publisher.PublishValve(event); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}

			// Hourly statistics feed the setback and anticipation logic.
			min := started.Minute()
			if min == preSampleMinute || min == fullSampleMinute {
				rh, haveRH := d.humidity.RHPC()
				d.sampler.Sample(min == fullSampleMinute, started.Hour(), stats.SampleInputs{
					TempC16:  lastTempC16,
					AmbLight: d.light.Level(),
					OccPC:    occPC,
					RHPC:     rh,
					HaveRH:   haveRH,
					WarmMode: d.radValve.InWarmMode(),
				})
			}

			updateTracker(d, lastTempC16, occPC, supplyMV, relayOn, mqttStatus)

			if d.cfg.StatsPeriod > 0 && started.Sub(lastStats) >= d.cfg.StatsPeriod {
				lastStats = started
				snap := d.tracker.Snapshot()
				if err := d.publisher.PublishStats(status.FormatStatusEvent(snap, "STATS", "")); err != nil {
					log.Printf("stats publish error: %v", err)
				}
			}

			// A tick taking longer than its period means the loop is
			// falling behind; keep a persistent count for diagnostics.
			if d.now().Sub(started) > d.cfg.TickPeriod {
				bumpOverrunCounter(d.st)
			}
		}
	}
}

func updateTracker(d loopDeps, tempC16 int16, occPC uint8, supplyMV int, relayOn bool, mqttStatus mqtt.ConnectionStatus) {
	mode := "FROST"
	if d.radValve.InBakeMode() {
		mode = "BAKE"
	} else if d.radValve.InWarmMode() {
		mode = "WARM"
	}
	rh, haveRH := d.humidity.RHPC()
	d.tracker.Update(
		status.Valve{
			Mode:           mode,
			TargetC:        d.radValve.TargetTempC(),
			TempC16:        tempC16,
			PercentOpen:    d.radValve.PercentOpen(),
			CallingForHeat: d.radValve.IsCallingForHeat(),
			ReallyOpen:     d.radValve.IsReallyOpen(),
			Filtering:      d.radValve.IsFiltering(),
			CumulativeMove: d.radValve.CumulativeMovementPC(),
		},
		status.Room{
			OccupancyPC:  occPC,
			VacancyHours: uint32(d.occ.VacancyHours()),
			RoomLit:      d.light.IsRoomLit(),
			DarkMinutes:  d.light.DarkMinutes(),
			RHPC:         rh,
			RHValid:      haveRH,
			SupplyMV:     supplyMV,
		},
		status.Hub{
			BoilerOn:          relayOn,
			MinsSinceLastCall: d.hub.MinutesSinceLastCall(),
		},
	)
	if mqttStatus != nil {
		d.tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
}

// loadOrCreateNodeID returns the persisted node identity, generating and
// persisting a fresh UUID on first run.
func loadOrCreateNodeID(st store.Store) string {
	var raw [store.NodeIDLen]byte
	allUnset := true
	for i := range raw {
		raw[i] = st.ReadByte(store.AddrNodeID + uint16(i))
		if raw[i] != store.Unset {
			allUnset = false
		}
	}
	if !allUnset {
		if id, err := uuid.FromBytes(raw[:]); err == nil {
			return id.String()
		}
	}
	id := uuid.New()
	for i, b := range id[:] {
		st.UpdateByte(store.AddrNodeID+uint16(i), b)
	}
	return id.String()
}

// bumpOverrunCounter increments the persisted overrun count, saturating.
// The byte is stored inverted so a fresh store reads as zero.
func bumpOverrunCounter(st store.Store) {
	count := ^st.ReadByte(store.AddrOverrunCounter)
	if count == 0xFF {
		return
	}
	st.UpdateByte(store.AddrOverrunCounter, ^(count + 1))
}

func openTempSensor(cfg config.Config) sensors.TemperatureSensor {
	s, err := sensors.NewW1Temperature(cfg.W1DeviceID)
	if err != nil {
		log.Printf("temperature sensor unavailable (%v), using fixed fake", err)
		return &sensors.FakeTemperature{Samples: []int16{18 * 16}}
	}
	return s
}

func openLightSensor(cfg config.Config) sensors.LightSensor {
	if cfg.LightPath == "" {
		return &sensors.FakeLight{Samples: []byte{128}}
	}
	s, err := sensors.NewIIOLight(cfg.LightPath, cfg.LightRawFull)
	if err != nil {
		log.Printf("light sensor unavailable (%v), using fixed fake", err)
		return &sensors.FakeLight{Samples: []byte{128}}
	}
	return s
}

func openHumiditySensor(cfg config.Config) sensors.HumiditySensor {
	if cfg.HumidityPath == "" {
		return nil
	}
	s, err := sensors.NewIIOHumidity(cfg.HumidityPath)
	if err != nil {
		log.Printf("humidity sensor unavailable (%v), disabled", err)
		return nil
	}
	return s
}

func openVoltageSensor(cfg config.Config) sensors.VoltageSensor {
	if cfg.VoltagePath == "" {
		return nil
	}
	s, err := sensors.NewIIOVoltage(cfg.VoltagePath)
	if err != nil {
		log.Printf("supply voltage sensor unavailable (%v), disabled", err)
		return nil
	}
	return s
}

func openRelay(cfg config.Config) (gpio.Relay, error) {
	if !cfg.RelayEnabled {
		return gpio.NewFakeRelay(), nil
	}
	pin := cfg.PinRelay
	if pin == 0 {
		pin = gpio.PinBoilerRelay
	}
	return gpio.NewRealRelay(pin)
}

func openMotion(cfg config.Config) (gpio.Motion, error) {
	if !cfg.PIREnabled {
		return gpio.NewFakeMotion(), nil
	}
	pin := cfg.PinPIR
	if pin == 0 {
		pin = gpio.PinPIR
	}
	return gpio.NewRealMotion(pin)
}
