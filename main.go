package main

import "github.com/Outburn-IL/fhir-validator/cmd"

func main() {
	cmd.Execute()
}
