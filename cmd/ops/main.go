package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli"
)

// ops is the operator's console for a running Win5x engine. It talks to the
// gateway's admin and read endpoints over HTTP.

const (
	hostFName   = "host"
	numberFName = "number"
	byFName     = "by"
	reasonFName = "reason"
	limitFName  = "limit"
)

func main() {
	app := cli.NewApp()
	app.Name = "win5x-ops"
	app.Usage = "operate a running Win5x engine"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: hostFName, Value: "http://localhost:8081", Usage: "gateway base URL"},
	}
	app.Commands = []cli.Command{
		{
			Name:   "round",
			Usage:  "show the current round",
			Action: showRound,
		},
		{
			Name:  "rounds",
			Usage: "show recently completed rounds",
			Flags: []cli.Flag{
				cli.IntFlag{Name: limitFName, Value: 20},
			},
			Action: showRounds,
		},
		{
			Name:   "stop",
			Usage:  "emergency stop: cancel the current round, refund all bets and halt the scheduler",
			Action: adminCommand("emergency_stop", nil),
		},
		{
			Name:  "spin",
			Usage: "end betting immediately; with --number, force that outcome",
			Flags: []cli.Flag{
				cli.IntFlag{Name: numberFName, Value: -1, Usage: "forced winning number 0-9 (omit for normal selection)"},
			},
			Action: adminCommand("manual_spin", func(c *cli.Context, body map[string]interface{}) {
				if n := c.Int(numberFName); n >= 0 {
					body["number"] = n
				}
			}),
		},
		{
			Name:  "extend",
			Usage: "extend the current betting window",
			Flags: []cli.Flag{
				cli.IntFlag{Name: byFName, Value: 30, Usage: "extension in seconds"},
			},
			Action: adminCommand("extend_betting", func(c *cli.Context, body map[string]interface{}) {
				body["seconds"] = c.Int(byFName)
			}),
		},
		{
			Name:  "cancel",
			Usage: "cancel the current round and refund all bets",
			Flags: []cli.Flag{
				cli.StringFlag{Name: reasonFName, Value: "cancelled by operator"},
			},
			Action: adminCommand("cancel_round", func(c *cli.Context, body map[string]interface{}) {
				body["reason"] = c.String(reasonFName)
			}),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

func baseURL(c *cli.Context) string {
	return c.GlobalString(hostFName)
}

// adminCommand builds an action that POSTs one admin command. fill, when not
// nil, adds the command's parameters to the request body.
func adminCommand(action string, fill func(c *cli.Context, body map[string]interface{})) func(c *cli.Context) error {
	return func(c *cli.Context) error {
		body := map[string]interface{}{"action": action}
		if fill != nil {
			fill(c, body)
		}
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}

		resp, err := httpClient().Post(baseURL(c)+"/api/admin/game/action", "application/json", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		return printResponse(resp)
	}
}

func showRound(c *cli.Context) error {
	resp, err := httpClient().Get(baseURL(c) + "/api/game/current-round")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printResponse(resp)
}

func showRounds(c *cli.Context) error {
	resp, err := httpClient().Get(fmt.Sprintf("%s/api/game/rounds?limit=%d", baseURL(c), c.Int(limitFName)))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		// Not JSON, print as-is.
		fmt.Println(string(raw))
	} else {
		fmt.Println(pretty.String())
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}
