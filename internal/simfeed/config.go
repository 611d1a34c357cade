package simfeed

import "time"

// Config holds the simulator settings.
type Config struct {
	Addr           string        // listen address
	Players        int           // seated players at start
	Interval       time.Duration // time between rounds
	StartBalance   float64       // balance of every player at start
	MaxBet         int           // bets are drawn from 1..MaxBet
	Rounds         int           // stop after this many rounds; 0 runs until canceled
	Seed           uint64        // random seed; 0 picks one from the clock
	WaitForClients bool          // hold rounds while nobody listens
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:7999"
	}
	if c.Players < 1 {
		c.Players = 3
	}
	if c.Interval <= 0 {
		c.Interval = time.Second
	}
	if c.StartBalance <= 0 {
		c.StartBalance = 1000
	}
	if c.MaxBet < 1 {
		c.MaxBet = 50
	}
	if c.Seed == 0 {
		c.Seed = uint64(time.Now().UnixNano())
	}
	return c
}
