package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/pms.go/pkg/env"
	"github.com/robotalks/pms.go/pkg/framework"
	"github.com/robotalks/pms.go/pkg/httpapi"
	"github.com/robotalks/pms.go/pkg/metrics"
	"github.com/robotalks/pms.go/pkg/publish/mqtt"
	"github.com/robotalks/pms.go/pkg/station"
)

const connectTimeout = 5 * time.Second

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf, err := env.NewConfig()
	if err != nil {
		log.Fatalln(err)
	}

	reg := metrics.NewRegistry()
	sensorMetrics := metrics.NewSensorMetrics(reg)
	dev, err := conf.OpenSensor(sensorMetrics)
	if err != nil {
		log.Fatalln(err)
	}
	defer dev.Close()
	lights, err := conf.OpenLights()
	if err != nil {
		log.Fatalln(err)
	}

	opts := station.Options{
		Smooth:     conf.Smooth,
		Lights:     lights,
		Metrics:    sensorMetrics,
		Fahrenheit: conf.Climate.Fahrenheit,
	}
	th, bus, err := conf.OpenClimate()
	if err != nil {
		glog.Warningf("climate sensor disabled: %v", err)
	} else if th != nil {
		defer bus.Close()
		opts.Climate = th
	}

	st := station.New(dev, opts)
	loop := framework.NewLoop(conf.Interval).Add(st)
	execute := func(cmd string) error {
		return st.Execute(loop, cmd)
	}

	if conf.MQTT.BrokerURL != "" {
		q, err := mqtt.NewQueueFromURL(conf.MQTT.BrokerURL, "pms-"+conf.StationID)
		if err != nil {
			log.Fatalln(err)
		}
		defer q.Close()
		pub := mqtt.NewPublisher(q, conf.MQTT.Topic, st, conf.MQTT.ReconnectInterval)
		pub.Encoding, _ = mqtt.ParseEncoding(conf.MQTT.Encoding)
		pub.StationID = conf.StationID
		pub.Metrics = sensorMetrics
		loop.Add(pub)
		if conf.MQTT.CommandTopic != "" {
			loop.AddRunnable(&mqtt.CommandListener{Queue: q, Topic: conf.MQTT.CommandTopic, Execute: execute})
		}
		if token := q.Connect(); !token.WaitTimeout(connectTimeout) {
			glog.Warningf("mqtt: connect to %s timed out, will retry", conf.MQTT.BrokerURL)
		} else if err := token.Error(); err != nil {
			glog.Warningf("mqtt: connect to %s: %v, will retry", conf.MQTT.BrokerURL, err)
		}
	}

	runner := framework.NewRunner().HandleSignals()
	runner.Go(framework.NamedRun("loop", loop))
	if conf.HTTP.Addr != "" {
		runner.Go(httpapi.New(conf.HTTP, st, execute, metrics.Handler(reg)))
	}
	glog.Infof("station %s reading %s every %s", conf.StationID, conf.Sensor.Port, conf.Interval)
	if err := runner.Wait(); err != nil {
		glog.Errorf("stopped: %v", err)
		glog.Flush()
		os.Exit(1)
	}
}
