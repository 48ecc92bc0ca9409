package server

import "encoding/xml"

// twimlResponse is the subset of TwiML the interview call uses.
type twimlResponse struct {
	XMLName xml.Name     `xml:"Response"`
	Say     []twimlSay   `xml:"Say,omitempty"`
	Gather  *twimlGather `xml:"Gather,omitempty"`
	Hangup  *struct{}    `xml:"Hangup,omitempty"`
}

type twimlSay struct {
	Voice string `xml:"voice,attr,omitempty"`
	Text  string `xml:",chardata"`
}

type twimlGather struct {
	Input         string   `xml:"input,attr"`
	Action        string   `xml:"action,attr"`
	Method        string   `xml:"method,attr"`
	SpeechTimeout string   `xml:"speechTimeout,attr"`
	Language      string   `xml:"language,attr,omitempty"`
	Say           twimlSay `xml:"Say"`
}

const twimlVoice = "Polly.Aditi"

func say(text string) twimlSay {
	return twimlSay{Voice: twimlVoice, Text: text}
}

// askQuestion speaks the optional lead-in lines and then gathers a spoken answer.
func askQuestion(action, question string, lead ...string) twimlResponse {
	resp := twimlResponse{
		Gather: &twimlGather{
			Input:         "speech",
			Action:        action,
			Method:        "POST",
			SpeechTimeout: "auto",
			Language:      "en-IN",
			Say:           say(question),
		},
	}
	for _, line := range lead {
		resp.Say = append(resp.Say, say(line))
	}
	return resp
}

func hangup(lines ...string) twimlResponse {
	resp := twimlResponse{Hangup: &struct{}{}}
	for _, line := range lines {
		resp.Say = append(resp.Say, say(line))
	}
	return resp
}
