// Command swarmollama runs multi-agent conversations against a local model server.
//
// Usage:
//
//	swarmollama chat --config agents.yaml
//	swarmollama run --agent triage "I want a refund"
//	swarmollama serve --config agents.yaml --addr :8080
//	swarmollama agents --config agents.yaml
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/prathyushnallamothu/swarmollama/config"
)

// CLI defines the command-line interface.
type CLI struct {
	Chat   ChatCmd   `cmd:"" default:"1" help:"Start an interactive session."`
	Run    RunCmd    `cmd:"" help:"Send one message and print the resulting transcript."`
	Serve  ServeCmd  `cmd:"" help:"Start the HTTP API."`
	Agents AgentsCmd `cmd:"" help:"List configured agents."`

	Config    string `short:"c" help:"Path to config file." type:"path" env:"SWARMOLLAMA_CONFIG"`
	Provider  string `help:"Backend provider (ollama, openai, gemini, langchain)." env:"SWARMOLLAMA_PROVIDER"`
	Host      string `help:"Backend base URL." env:"OLLAMA_HOST"`
	Model     string `help:"Default model." env:"SWARMOLLAMA_MODEL"`
	LogLevel  string `help:"Log level (debug, info, warn, error)."`
	LogFormat string `help:"Log format (text, json)."`
}

func main() {
	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("swarmollama"),
		kong.Description("Multi-agent orchestration with emulated function calling"),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
