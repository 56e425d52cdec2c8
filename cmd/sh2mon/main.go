package main

import (
	"encoding/hex"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/robotalks/sh2bridge/pkg/hostlink/mqtt"
	"github.com/robotalks/sh2bridge/pkg/hostlink/msgs"
	"github.com/robotalks/sh2bridge/pkg/sim"
)

var (
	mqttURL = "mqtt://localhost:1883/sh2/"
)

func init() {
	if val := os.Getenv("SH2_LINK_URL"); strings.HasPrefix(val, "mqtt") {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	q.Sub("+/"+mqtt.TopicStatus, mqtt.Handler(func(topic string, payload []byte) {
		log.Printf("%s: %s", topic, string(payload))
	}))
	q.Sub("+/"+mqtt.TopicFrames, mqtt.Handler(func(topic string, payload []byte) {
		frame, err := msgs.DecodeFrame(payload)
		if err != nil {
			log.Printf("%s: bad frame: %v", topic, err)
			return
		}
		if frame.Ack != nil {
			log.Printf("%s: ack %s", topic, frame.Ack.String())
			return
		}
		if q, ok := sim.DecodeRotation(frame.Payload); ok {
			log.Printf("%s: @%d i=%.4f j=%.4f k=%.4f real=%.4f", topic, frame.TimestampUs, q.I, q.J, q.K, q.Real)
			return
		}
		log.Printf("%s: @%d discards=%d %s", topic, frame.TimestampUs, frame.Discards, hex.EncodeToString(frame.Payload))
	}))
	token := q.Connect()
	if token.Wait(); token.Error() != nil {
		log.Fatalln(token.Error())
	}
	<-(chan struct{})(nil)
}
