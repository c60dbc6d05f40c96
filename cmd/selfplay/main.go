// Command selfplay pits two computer chefs against each other through two synced
// peer sessions, either over an in-memory pipe or through a running relay.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"cookduel/replay"
)

func main() {
	var opts options
	flag.Int64Var(&opts.seed, "seed", time.Now().UnixNano(), "deal and brain seed")
	flag.StringVar(&opts.policy, "policy", "FREE", "turn policy: FREE or TURNS")
	flag.StringVar(&opts.chefs[0], "p0", "chef_kenji", "persona for seat 0 (empty or \"random\" picks one)")
	flag.StringVar(&opts.chefs[1], "p1", "bu_rina", "persona for seat 1 (empty or \"random\" picks one)")
	flag.StringVar(&opts.personas, "personas", "", "optional persona JSON file")
	flag.DurationVar(&opts.think, "think", 25*time.Millisecond, "pause between decisions")
	flag.IntVar(&opts.maxActions, "max-actions", 600, "stop after this many submitted actions")
	flag.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "wall-clock limit")
	flag.StringVar(&opts.relay, "relay", "", "relay base URL, e.g. http://localhost:8080 (default: in-memory pipe)")
	flag.StringVar(&opts.oracle, "oracle", "", "HTTP oracle endpoint driving seat 1 instead of a rule brain")
	flag.StringVar(&opts.oracleKey, "oracle-key", os.Getenv("ORACLE_API_KEY"), "oracle API key")
	flag.StringVar(&opts.oracleModel, "oracle-model", "gpt-4o-mini", "oracle model name")
	flag.StringVar(&opts.tapePath, "tape", "", "write the host's tape to this file")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	res, err := play(ctx, opts)
	if err != nil {
		log.Fatalf("[SelfPlay] %v", err)
	}
	report(res)

	if opts.tapePath != "" {
		raw, err := replay.EncodeTape(res.tape)
		if err != nil {
			log.Fatalf("[SelfPlay] encode tape: %v", err)
		}
		if err := os.WriteFile(opts.tapePath, raw, 0o644); err != nil {
			log.Fatalf("[SelfPlay] write tape: %v", err)
		}
		log.Printf("[SelfPlay] Tape written to %s (%d entries)", opts.tapePath, len(res.tape.Entries))
	}
}

func report(res *result) {
	st := res.state
	fmt.Printf("session   %s\n", res.sessionID)
	fmt.Printf("phase     %s after %d turns, %d actions submitted\n", st.Phase, st.Turn, res.actions)
	for i, p := range st.Players {
		fmt.Printf("seat %d    %-14s score %3d  dishes %d\n", i, p.Name, p.Score, len(p.CookedDishes))
	}
	if st.Winner >= 0 {
		fmt.Printf("winner    %s\n", st.Players[st.Winner].Name)
	} else {
		fmt.Println("winner    none")
	}
	fmt.Printf("replay    %d entries, verified\n", len(res.tape.Entries))
}
