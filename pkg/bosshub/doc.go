// Package bosshub is the BossHub device SDK.
//
// A Client talks to the BossHub platform over HTTPS (status, payments,
// sales, remote config, OTA) and receives remote commands over MQTT on
// devices/{device_id}/command.
//
// Typical use:
//
//	client, err := bosshub.Connect(ctx, os.Getenv("BOSSHUB_API_KEY"))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.Heartbeat(ctx)
//	client.UpdateStatus(ctx, bosshub.StateIdle, "")
//
//	err = client.ConnectMQTT(ctx, func(msg bosshub.Message) {
//	    log.Printf("command on %s: %s", msg.Topic, msg.Text())
//	})
//
//	for {
//	    client.Loop() // only needed in cooperative mode
//	    time.Sleep(100 * time.Millisecond)
//	}
//
// In cooperative mode Subscribe, Unsubscribe and Loop share the router
// without locking and must run on the same goroutine. Threaded mode has no
// such restriction.
//
// Platform calls never panic. A failed call returns a nil Response and an
// error matching ErrRequestFailed, which callers are free to ignore.
// The only fatal construction error is a missing API key (ErrMissingAPIKey).
package bosshub
