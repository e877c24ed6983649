/*
Package resilience provides a circuit breaker for remote update endpoints.

The stats and check-latest endpoints are best-effort. When one of them keeps
failing, the breaker stops further calls for a cooldown period so a dead
endpoint costs nothing on the device.

# Usage

	breaker := resilience.New("stats", resilience.Settings{
		FailureThreshold: 5,
		Cooldown:         time.Minute,
	})

	err := breaker.Execute(func() error {
		return post()
	})

# States

	Closed --[threshold failures]-> Open --[cooldown]-> Half-Open --[probe ok]-> Closed
	                                  ^                      |
	                                  +----[probe failed]----+
*/
package resilience
