package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"followup-voicebot/agent/completion"
	"followup-voicebot/agent/contract"
	llmx "followup-voicebot/agent/llm"
	"followup-voicebot/agent/orchestrator"
	"followup-voicebot/agent/patient"
	sessionx "followup-voicebot/agent/session"
	configx "followup-voicebot/pkg/config"
	foundryx "followup-voicebot/pkg/foundry"
	gcalx "followup-voicebot/pkg/gcal"
	logx "followup-voicebot/pkg/logger"
	_ "followup-voicebot/pkg/logger/autoload"
	patientdbx "followup-voicebot/pkg/patientdb"
)

type AppConfig struct {
	PatientsFile string `envconfig:"PATIENTS_FILE" split_words:"true" default:"patients.json"`
	PatientID    string `envconfig:"PATIENT_ID" split_words:"true"`
	PatientStore string `envconfig:"PATIENT_STORE" split_words:"true" default:"file"` // file or postgres
	UseGoogleCal bool   `envconfig:"USE_GOOGLE_CALENDAR" split_words:"true" default:"false"`
}

func main() {
	log := logx.Component("main")
	ctx := context.Background()

	appCfg := configx.MustNew[AppConfig]("")
	llmCfg := configx.MustNew[llmx.Config]("FOUNDRY")
	if err := llmCfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid completion service config")
	}

	if err := foundryx.Probe(ctx, llmCfg.FoundryFor(contract.RoleTriage)); err != nil {
		log.Fatal().Err(err).Msg("completion service probe failed")
	}

	models, err := llmx.BuildModels(ctx, *llmCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build role models")
	}

	policy := *configx.MustNew[completion.Policy]("RETRY")
	client, err := completion.NewClient(models, sessionx.NewRegistry(), policy)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build completion client")
	}

	var calendar contract.Calendar
	if appCfg.UseGoogleCal {
		gcalCfg := configx.MustNew[gcalx.Config]("GCAL")
		calendar, err = gcalx.New(ctx, *gcalCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to google calendar")
		}
	} else {
		calendar = gcalx.NewMemory()
	}

	var patients patient.Store
	if appCfg.PatientStore == "postgres" {
		dbCfg := configx.MustNew[patientdbx.Config]("PATIENTDB")
		patients, err = patientdbx.New(*dbCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open patient database")
		}
	} else {
		patients = patient.NewFileStore(appCfg.PatientsFile)
	}

	bot, err := orchestrator.New(client, calendar, patients)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build orchestrator")
	}

	patientID := appCfg.PatientID
	if patientID == "" {
		profile, err := patients.First(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("no patient record available")
		}
		patientID = profile.ID
	}

	fmt.Println("=== Follow-Up Voice Bot (console) ===")
	fmt.Println("Type 'exit' to end the call.")
	fmt.Println()

	greeting, err := bot.HandleTurn(ctx, patientID, orchestrator.StartCallSentinel)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start call")
	}
	fmt.Printf("Bot: %s\n", greeting)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if strings.EqualFold(text, "exit") {
			fmt.Println("Bot: Thank you for your time. Take care!")
			break
		}

		reply, err := bot.HandleTurn(ctx, patientID, text)
		if err != nil {
			log.Error().Err(err).Msg("turn failed")
			continue
		}
		fmt.Printf("Bot: %s\n", reply)
	}
}
