// Command scoredrill drives a running highscore service with generated
// players and checks the personal bests and leaderboard it reports.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/okian/highscore/internal/drill"
)

func main() {
	_ = godotenv.Load()
	if err := drill.NewApp().Run(os.Args); err != nil {
		os.Stderr.WriteString("Drill failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
