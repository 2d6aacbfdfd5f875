/*
Copyright © 2026 Anton Brekhov <anton@abrekhov.ru>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/abrekhov/voicepipe/pkg/engine"
	"github.com/abrekhov/voicepipe/pkg/icestate"
	"github.com/abrekhov/voicepipe/pkg/negotiate"
	"github.com/abrekhov/voicepipe/pkg/session"
	"github.com/abrekhov/voicepipe/pkg/signaling"
	"github.com/abrekhov/voicepipe/pkg/tui"
)

const apiKeyEnv = "OPENAI_API_KEY"

// Flags
var (
	cfgFile      string
	verbose      bool
	model        string
	baseURL      string
	instructions string
	stunServers  []string
	assumeYes    bool
	renegotiate  bool
	useTUI       bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "voicepipe",
	Short: "Realtime voice bridge over WebRTC",
	Long:  `VoicePipe bridges a local endpoint to a cloud realtime voice API over WebRTC: offer/answer negotiation, ephemeral-key bootstrap, and a data channel for session control.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
	Run: Connect,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.voicepipe.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Increase verbosity")
	rootCmd.Flags().StringVarP(&model, "model", "m", signaling.DefaultModel, "Realtime model to connect to")
	rootCmd.Flags().StringVar(&baseURL, "base-url", signaling.DefaultBaseURL, "Signaling service base URL")
	rootCmd.Flags().StringVar(&instructions, "instructions", "", "Override session instructions")
	rootCmd.Flags().StringSliceVar(&stunServers, "stun", []string{engine.DefaultSTUNServer}, "STUN server URLs")
	rootCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the connect confirmation prompt")
	rootCmd.Flags().BoolVar(&renegotiate, "renegotiate", false, "Allow a new negotiation trigger to supersede an in-flight attempt")
	rootCmd.Flags().BoolVar(&useTUI, "tui", false, "Show the interactive status screen")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".voicepipe" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".voicepipe")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// lookupAPIKey surfaces a missing API key as a configuration error before any
// negotiation attempt begins.
func lookupAPIKey() (string, error) {
	key := viper.GetString(apiKeyEnv)
	if key == "" {
		key = os.Getenv(apiKeyEnv)
	}
	if key == "" {
		return "", fmt.Errorf("%s is not set; export it or put it in the config file", apiKeyEnv)
	}
	return key, nil
}

// buildSessionConfig applies the instructions override on the fixed defaults.
func buildSessionConfig(override string) session.Config {
	cfg := session.DefaultConfig()
	if override != "" {
		cfg.Instructions = override
	}
	return cfg
}

// Connect establishes the WebRTC session against the realtime API and runs
// until interrupted.
func Connect(cmd *cobra.Command, args []string) {
	apiKey, err := lookupAPIKey()
	cobra.CheckErr(err)

	if !assumeYes {
		proceed := false
		prompt := &survey.Confirm{
			Message: fmt.Sprintf("Connect to %s and stream audio to %s?", baseURL, model),
			Default: true,
		}
		cobra.CheckErr(survey.AskOne(prompt, &proceed))
		if !proceed {
			log.Infoln("Aborted.")
			return
		}
	}

	eng, err := engine.NewPion(engine.Config{STUNServers: stunServers})
	cobra.CheckErr(err)
	defer func() {
		if err := eng.Close(); err != nil {
			log.Errorf("Failed to close peer connection: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var program *tea.Program
	if useTUI {
		program = tea.NewProgram(tui.NewModel(model))
	}

	client := signaling.NewClient(baseURL, model, apiKey)
	configurator := session.NewConfigurator(buildSessionConfig(instructions))

	orch := negotiate.New(eng, client, client, configurator, negotiate.Options{
		Restart: renegotiate,
		OnPhaseChange: func(id uint64, phase negotiate.Phase) {
			if program != nil {
				program.Send(tui.PhaseMsg{AttemptID: id, Phase: phase.String()})
			}
		},
	})
	orch.Start(ctx)

	monitor := icestate.NewMonitor(func(cat icestate.Category) {
		if program != nil {
			program.Send(tui.ICEStateMsg{State: string(cat)})
		}
	})
	monitor.Subscribe(eng.PeerConnection())

	eng.OnNegotiationNeeded(orch.NegotiationNeeded)
	// Adding the audio transceiver fires the first negotiation-needed event.
	cobra.CheckErr(eng.AddAudioTransceiver())

	if program != nil {
		go func() {
			<-ctx.Done()
			program.Send(tui.QuitMsg{})
		}()
		if _, err := program.Run(); err != nil {
			log.Errorf("Status screen failed: %v", err)
		}
		return
	}

	log.Infoln("Connecting... (Ctrl+C to quit)")
	<-ctx.Done()

	snap := orch.Snapshot()
	log.WithFields(log.Fields{
		"attempt": snap.ID,
		"phase":   snap.Phase.String(),
		"ice":     string(monitor.Last()),
	}).Infoln("Shutting down")
}
