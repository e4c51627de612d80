package main

import (
	"os"

	"github.com/MobRulesGames/mapasset/cmd"
)

func main() {
	cmd.Main(os.Args)
}
