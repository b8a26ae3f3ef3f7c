package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"os"

	_ "modernc.org/sqlite"

	"github.com/ad/go-telegram-reminder/internal/db"
	"github.com/ad/go-telegram-reminder/internal/models"
)

type reminderEntry struct {
	Phase    int    `json:"phase"`
	Day      int    `json:"day"`
	Focus    string `json:"focus"`
	Resource string `json:"resource"`
	Practice string `json:"practice"`
}

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./reminder.db"
	}

	inputPath := "reminders.json"
	if len(os.Args) > 1 {
		inputPath = os.Args[1]
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", inputPath, err)
	}

	var entries []reminderEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Fatalf("Failed to parse %s: %v", inputPath, err)
	}

	database, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	if err := db.InitSchema(database); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	queue := db.NewDBQueue(database)
	defer queue.Close()

	repo := db.NewReminderRepository(queue)

	log.Printf("Importing %d reminders from %s...", len(entries), inputPath)
	for _, entry := range entries {
		_, err := repo.Create(&models.Reminder{
			Phase:    entry.Phase,
			Day:      entry.Day,
			Focus:    entry.Focus,
			Resource: entry.Resource,
			Practice: entry.Practice,
		})
		if err != nil {
			log.Fatalf("Failed to insert reminder (phase %d, day %d): %v", entry.Phase, entry.Day, err)
		}
	}

	log.Println("Reminders imported successfully!")
}
