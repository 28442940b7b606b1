// Package supervisor owns the MQTT session of a BossHub device.
//
// A Supervisor connects the transport, keeps the device subscribed to its
// command topic (devices/{id}/command), records every other subscription,
// and after a transport failure makes a single reconnect attempt that
// restores all of them. Inbound messages are handed to a Dispatcher,
// normally a *router.Router.
//
// # States
//
//	Disconnected ──Connect ok──▶ Connected ──transport error──▶ Reconnecting
//	      ▲                                                        │
//	      └─────────────── reconnect failed ◀──────────────────────┘
//	                       reconnect ok ──▶ Connected
//
// # Usage
//
//	sup, err := supervisor.New(supervisor.Options{
//	    DeviceID:  id,
//	    Transport: transport,
//	    Router:    router.NewThreaded(logger, m),
//	    Logger:    logger,
//	})
//	if err := sup.Connect(ctx, onCommand); err != nil {
//	    // no automatic retry; call Connect again later
//	}
//	sup.Publish(mqtt.Topics{}.DeviceResponse(id), map[string]int{"coke": 10})
package supervisor
