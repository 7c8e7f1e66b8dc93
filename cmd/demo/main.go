package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"murmur/agent/internal/config"
	"murmur/agent/internal/interrupt"
)

// Scripted walkthrough of the interruption decisions, usable as a smoke test
// without any worker, STT, or LLM attached.

type step struct {
	mode     interrupt.Mode
	text     string
	expected bool
}

func main() {
	verbose := flag.Bool("v", false, "print every step even when it matches")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	c := interrupt.NewClassifier(cfg.ResolveIgnoreWords())

	steps := []step{
		// Scenario 1: long explanation, user acknowledges passively
		{interrupt.ModeSpeaking, "yeah", false},
		{interrupt.ModeSpeaking, "okay", false},
		{interrupt.ModeSpeaking, "uh-huh", false},
		{interrupt.ModeSpeaking, "yeah okay right hmm", false},

		// Scenario 2: agent asked a question and went silent
		{interrupt.ModeSilent, "yeah", true},
		{interrupt.ModeSilent, "okay", true},

		// Scenario 3: explicit interruption
		{interrupt.ModeSpeaking, "no stop", true},
		{interrupt.ModeSpeaking, "hold on a second", true},

		// Scenario 4: mixed filler and command
		{interrupt.ModeSpeaking, "yeah okay but wait", true},

		// Edge cases
		{interrupt.ModeSpeaking, "that's really interesting", true},
		{interrupt.ModeSpeaking, "STOP", true},
		{interrupt.ModeSpeaking, "", false},
		{interrupt.ModeSilent, "   ", false},
	}

	failed := 0
	for i, s := range steps {
		got := c.Decide(s.mode, s.text)
		ok := got == s.expected
		if !ok {
			failed++
		}
		if *verbose || !ok {
			mark := "ok"
			if !ok {
				mark = "FAIL"
			}
			fmt.Printf("%2d [%s] mode=%-8s text=%-28q act=%v want=%v\n", i+1, mark, s.mode, s.text, got, s.expected)
		}
	}

	fmt.Printf("\n%d steps, %d failed\n", len(steps), failed)
	if failed > 0 {
		os.Exit(1)
	}
}
