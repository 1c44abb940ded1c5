package main

import (
	"os"

	"github.com/rails-api/active-model-serializers-sub000/internal/cli/commands"
)

func main() {
	os.Exit(commands.Execute())
}
