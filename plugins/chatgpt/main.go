// chatgpt is the example bridge plugin: it declares a two-parameter string
// contract and answers each call with one outbound request to the OpenAI
// chat completions API, authenticated with a bearer credential injected
// into the sandbox as the openai_apikey secret.
//
// Build with TinyGo: tinygo build -target wasi -o chatgpt.wasm .
package main

import (
	"encoding/json"
	"errors"
	"fmt"

	pdk "github.com/extism/go-pdk"
)

// metadataDocument is the contract the bridge reads at registration time.
type metadataDocument struct {
	EntryPoint  string            `json:"entryPoint"`
	Parameters  map[string]string `json:"parameters"`
	ReturnType  string            `json:"returnType"`
	ReturnField string            `json:"returnField"`
}

type input struct {
	Prompt  string `json:"prompt"`
	Payload string `json:"payload"`
}

type output struct {
	Response string `json:"response"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatResult struct {
	Choices []chatChoice `json:"choices"`
}

//export metadata
func metadata() int32 {
	doc := metadataDocument{
		EntryPoint: "chatgpt",
		Parameters: map[string]string{
			"prompt":  "String",
			"payload": "String",
		},
		ReturnType:  "String",
		ReturnField: "response",
	}
	data, err := json.Marshal(doc)
	if err != nil {
		pdk.SetError(err)
		return 1
	}
	pdk.Output(data)
	return 0
}

//export chatgpt
func chatgpt() int32 {
	var in input
	if err := json.Unmarshal(pdk.Input(), &in); err != nil {
		pdk.SetError(fmt.Errorf("decoding input: %w", err))
		return 1
	}

	apiKey, ok := pdk.GetConfig("openai_apikey")
	if !ok {
		pdk.SetError(errors.New("missing config key 'openai_apikey'"))
		return 1
	}

	body, err := json.Marshal(map[string]any{
		"model": "gpt-3.5-turbo",
		"messages": []chatMessage{
			{Role: "user", Content: in.Prompt + " " + in.Payload},
		},
	})
	if err != nil {
		pdk.SetError(err)
		return 1
	}

	req := pdk.NewHTTPRequest(pdk.MethodPost, "https://api.openai.com/v1/chat/completions")
	req.SetHeader("Authorization", "Bearer "+apiKey)
	req.SetHeader("Content-Type", "application/json")
	req.SetBody(body)

	pdk.Log(pdk.LogInfo, "calling OpenAI chat completions")
	res := req.Send()
	if res.Status() != 200 {
		pdk.SetError(fmt.Errorf("OpenAI returned status %d", res.Status()))
		return 1
	}

	var result chatResult
	if err := json.Unmarshal(res.Body(), &result); err != nil {
		pdk.SetError(fmt.Errorf("decoding OpenAI response: %w", err))
		return 1
	}
	if len(result.Choices) == 0 {
		pdk.SetError(errors.New("OpenAI response has no choices"))
		return 1
	}

	data, err := json.Marshal(output{Response: result.Choices[0].Message.Content})
	if err != nil {
		pdk.SetError(err)
		return 1
	}
	pdk.Output(data)
	return 0
}

func main() {}
