package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/robotalks/pms.go/pkg/publish/mqtt"
)

var (
	mqttURL  = "mqtt://localhost:1883/"
	topic    = "#"
	encoding = string(mqtt.EncodingJSON)
)

func init() {
	if val := os.Getenv("PMS_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&topic, "topic", topic, "Topic to monitor, relative to the URL prefix.")
	flag.StringVar(&encoding, "encoding", encoding, "Payload encoding: json, proto or flat.")
}

func formatValues(values map[string]int) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for n, key := range keys {
		parts[n] = fmt.Sprintf("%s=%d", key, values[key])
	}
	return strings.Join(parts, " ")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	enc, err := mqtt.ParseEncoding(encoding)
	if err != nil {
		log.Fatalln(err)
	}
	q, err := mqtt.NewQueueFromURL(mqttURL, "")
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	defer q.Close()

	q.Sub(topic, func(topic string, payload []byte) {
		msg, err := mqtt.DecodeMessage(enc, payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		log.Printf("%s: [%s] aqi=%d (%s) %s", topic, msg.Station, msg.AQI.AQI, msg.AQI.Category, formatValues(msg.Values))
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	<-sigCh
}
