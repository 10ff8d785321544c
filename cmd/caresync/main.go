package main

import (
	"log"

	"github.com/KaveeshaHeshan/CareSync-Health-Platform-sub003/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
