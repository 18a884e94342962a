// Package redis provides helpers for connecting to a Redis server and a
// small lease-based lock used to serialize billing operations per
// reference.
//
// Connect retries using the supplied configuration, whose fields are
// populated from environment variables via github.com/caarlos0/env:
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		// handle error, probably terminate the application
//	}
//	defer client.Close()
//
//	locker := redis.NewLock(client, "billing:lock", 30*time.Second)
package redis
