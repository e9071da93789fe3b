package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mcdev12/doodleduel/go/internal/game/config"
	"github.com/mcdev12/doodleduel/go/internal/game/snapshot"
	"github.com/mcdev12/doodleduel/go/internal/models"
)

var names = []string{"Ada", "Basquiat", "Cassatt", "Dali", "Escher", "Frida", "Goya", "Hokusai"}

func main() {
	ctx := context.Background()

	players := flag.Int("players", 3, "number of participants to seed")
	prompt := flag.String("prompt", "a cat riding a skateboard", "drawing prompt")
	ready := flag.Bool("ready", false, "mark every participant ready with a booster pack")
	phase := flag.String("phase", string(models.PhaseWaiting), "phase to start the session in")
	drawings := flag.Bool("drawings", false, "hand in a drawing for every participant")
	migrate := flag.Bool("migrate", true, "apply the session schema first")
	flag.Parse()

	if *players < 0 || *players > len(names) {
		fmt.Fprintf(os.Stderr, "players must be between 0 and %d\n", len(names))
		os.Exit(1)
	}

	// 1) Connect to DB
	dbCfg, err := config.DatabaseFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "database config: %v\n", err)
		os.Exit(1)
	}
	db, err := sql.Open("pgx", dbCfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 2) Schema
	if *migrate {
		if _, err := db.ExecContext(ctx, snapshot.Schema); err != nil {
			fmt.Fprintf(os.Stderr, "apply schema: %v\n", err)
			os.Exit(1)
		}
	}

	// 3) Session, participants and drawings in one tx
	seed := snapshot.SeedSession{Prompt: *prompt, Phase: models.Phase(*phase)}
	if p := seed.Phase; p.Timed() {
		deadline := time.Now().Add(time.Duration(models.DefaultPhaseDurations.For(p)) * time.Second)
		seed.Deadline = &deadline
	}
	for i := 0; i < *players; i++ {
		player := snapshot.SeedPlayer{UserID: uuid.New(), DisplayName: names[i], Ready: *ready}
		if *ready {
			pack := fmt.Sprintf("pack-%d", i+1)
			player.PackID = &pack
		}
		if *drawings {
			player.DrawingRef = fmt.Sprintf("seed://%s.png", names[i])
			player.Metadata, _ = json.Marshal(map[string]int{"strokes": 10 * (i + 1)})
		}
		seed.Players = append(seed.Players, player)
	}

	sessionID, err := snapshot.NewSeeder(db).Seed(ctx, seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed session: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Session seed: session_id=%s phase=%s players=%d ready=%t\n", sessionID, seed.Phase, len(seed.Players), *ready)
	for _, p := range seed.Players {
		fmt.Printf("  %-10s user_id=%s\n", p.DisplayName, p.UserID)
	}
}
