package main

import "github.com/fatih/color"

var (
	titleColour   = color.New(color.FgCyan, color.Bold)
	channelColour = color.New(color.FgMagenta)
	dimColour     = color.New(color.FgHiBlack)
	errorColour   = color.New(color.FgRed, color.Bold)
	infoColour    = color.New(color.FgBlue)
)
