package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/asesor/internal/advisor"
	"github.com/hpungsan/asesor/internal/db"
	"github.com/hpungsan/asesor/internal/docstore"
	"github.com/hpungsan/asesor/internal/document"
	"github.com/hpungsan/asesor/internal/errors"
	"github.com/hpungsan/asesor/internal/ingest"
	"github.com/hpungsan/asesor/internal/lead"
	"github.com/hpungsan/asesor/internal/mcp"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(rt *runtime) *cli.App {
	app := &cli.App{
		Name:    "asesor",
		Usage:   "Technical advisor and lead qualification for skid steer implements",
		Version: Version,
		Commands: []*cli.Command{
			searchCmd(rt),
			compatCmd(rt),
			specsCmd(rt),
			ingestCmd(rt),
			qualifyCmd(),
			chatCmd(rt),
			serveCmd(rt),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// metadataFlags are the document filters shared by search-style commands.
var metadataFlags = []string{"marca", "modelo", "categoria", "tipo"}

// searchCmd creates the search command.
func searchCmd(rt *runtime) *cli.Command {
	flags := []cli.Flag{
		&cli.IntFlag{Name: "top-k", Aliases: []string{"k"}, Usage: "Maximum results (defaults to search_top_k)"},
	}
	for _, name := range metadataFlags {
		flags = append(flags, &cli.StringFlag{Name: name, Usage: "Only documents whose " + name + " metadata matches"})
	}

	return &cli.Command{
		Name:      "search",
		Usage:     "Rank knowledge base documents against a query",
		ArgsUsage: "<query>",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if query == "" {
				return outputError(errors.NewInvalidRequest("query is required"))
			}
			topK := c.Int("top-k")
			if topK < 0 {
				return outputError(errors.NewInvalidRequest("top-k must be positive"))
			}
			if topK == 0 {
				topK = rt.cfg.SearchTopK
			}

			results := rt.engine.SearchScored(query, metadataFilters(c), topK)
			hits := make([]mcp.SearchHit, len(results))
			for i, r := range results {
				hits[i] = mcp.SearchHit{
					ID:       r.Document.ID,
					Content:  r.Document.Content,
					Metadata: r.Document.Metadata,
					Score:    r.Score,
				}
			}
			return outputJSON(c.App.Writer, mcp.SearchOutput{Results: hits, Count: len(hits)})
		},
	}
}

// compatCmd creates the compat command.
func compatCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "compat",
		Usage: "Judge whether an implement fits a machine",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "implemento", Aliases: []string{"i"}, Usage: "Implement name"},
			&cli.StringFlag{Name: "marca", Aliases: []string{"m"}, Usage: "Machine brand"},
			&cli.StringFlag{Name: "modelo", Usage: "Machine model"},
		},
		Action: func(c *cli.Context) error {
			implemento := strings.TrimSpace(c.String("implemento"))
			marca := strings.TrimSpace(c.String("marca"))
			if implemento == "" || marca == "" {
				return outputError(errors.NewInvalidRequest("implemento and marca are required"))
			}
			result := rt.engine.ValidateCompatibility(implemento, marca, strings.TrimSpace(c.String("modelo")))
			return outputJSON(c.App.Writer, result)
		},
	}
}

// specsCmd creates the specs command.
func specsCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "specs",
		Usage: "Show the best-matching specifications for a machine",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "marca", Aliases: []string{"m"}, Usage: "Machine brand"},
			&cli.StringFlag{Name: "modelo", Usage: "Machine model"},
		},
		Action: func(c *cli.Context) error {
			marca := strings.TrimSpace(c.String("marca"))
			if marca == "" {
				return outputError(errors.NewInvalidRequest("marca is required"))
			}
			return outputJSON(c.App.Writer, rt.engine.GetSpecifications(marca, strings.TrimSpace(c.String("modelo"))))
		},
	}
}

// IngestOutput is the ingest command response.
type IngestOutput struct {
	Loaded  int      `json:"loaded"`
	IDs     []string `json:"ids"`
	Skipped []string `json:"skipped,omitempty"`
	Errors  []string `json:"errors,omitempty"`
	Out     string   `json:"out,omitempty"`
	Catalog string   `json:"catalog,omitempty"`
}

// ingestCmd creates the ingest command.
func ingestCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Load documents from a directory or OCR text on stdin and write them out",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "Directory to load (defaults to docs_dir)"},
			&cli.StringFlag{Name: "pattern", Aliases: []string{"p"}, Usage: "Glob within dir, e.g. *.txt (ids become file_<stem>)"},
			&cli.StringFlag{Name: "ocr-name", Usage: "Read OCR text from stdin as the document extracted from this file name"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write the documents to this knowledge file"},
			&cli.StringFlag{Name: "catalog", Usage: "Insert the documents into this SQLite catalog"},
		},
		Action: func(c *cli.Context) error {
			var (
				docs []document.Document
				out  IngestOutput
				src  string
			)

			switch {
			case c.String("ocr-name") != "":
				data, err := io.ReadAll(c.App.Reader)
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				doc, ok := ingest.FromOCRText(c.String("ocr-name"), string(data))
				if !ok {
					return outputError(errors.NewInvalidRequest("OCR text must be piped via stdin"))
				}
				docs, src = []document.Document{doc}, "ocr"
			case c.String("pattern") != "":
				var errs []error
				docs, errs = ingest.LoadDir(ingestDir(c, rt), c.String("pattern"))
				for _, err := range errs {
					out.Errors = append(out.Errors, err.Error())
				}
				if len(docs) == 0 && len(errs) > 0 {
					return outputError(errs[0])
				}
				src = ingest.SourceFiles
			default:
				var rep ingest.Report
				docs, rep = ingest.ScanDocsDir(ingestDir(c, rt), rt.logger)
				out.Skipped, out.Errors = rep.Skipped, rep.Errors
				src = ingest.SourceFiles
			}

			out.Loaded = len(docs)
			out.IDs = make([]string, len(docs))
			for i, d := range docs {
				out.IDs[i] = d.ID
			}

			if path := c.String("out"); path != "" {
				if err := docstore.WriteFile(path, docs); err != nil {
					return outputError(errors.NewInternal(err))
				}
				out.Out = path
			}
			if path := c.String("catalog"); path != "" {
				catalog, err := db.Init(path)
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				defer catalog.Close()
				if err := db.InsertDocuments(c.Context, catalog, docs, src); err != nil {
					return outputError(errors.NewInternal(err))
				}
				out.Catalog = path
			}

			return outputJSON(c.App.Writer, out)
		},
	}
}

func ingestDir(c *cli.Context, rt *runtime) string {
	if dir := c.String("dir"); dir != "" {
		return dir
	}
	return rt.cfg.DocsDir
}

// QualifyOutput is the qualify command response.
type QualifyOutput struct {
	CurrentState       lead.State   `json:"current_state"`
	SuggestedState     *lead.State  `json:"suggested_state"`
	AllowedTransitions []lead.State `json:"allowed_transitions"`
	MissingData        []string     `json:"missing_data"`
	Qualified          bool         `json:"qualified"`
}

// qualifyCmd creates the qualify command. It evaluates a lead built from
// flags without creating a session or calling any collaborator.
func qualifyCmd() *cli.Command {
	return &cli.Command{
		Name:  "qualify",
		Usage: "Dry-run the qualification rules for the given lead data",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "state", Aliases: []string{"s"}, Value: string(lead.StateNew), Usage: "Current state"},
			&cli.StringFlag{Name: "canal", Usage: "whatsapp|web|email|telefono"},
			&cli.StringFlag{Name: "nombre", Usage: "Lead name"},
			&cli.StringFlag{Name: "zona", Usage: "Lead zone"},
			&cli.StringFlag{Name: "marca", Usage: "Machine brand"},
			&cli.StringFlag{Name: "modelo", Usage: "Machine model"},
			&cli.StringFlag{Name: "uso", Usage: "obra|agro|industria|otro"},
			&cli.StringFlag{Name: "implemento", Usage: "Implement of interest"},
			&cli.StringFlag{Name: "urgencia", Usage: "alta|media|baja"},
		},
		Action: func(c *cli.Context) error {
			state, err := lead.ParseState(c.String("state"))
			if err != nil {
				return outputError(err)
			}
			canal := lead.Canal(strings.ToLower(c.String("canal")))
			if canal != "" && !canal.Valid() {
				return outputError(errors.NewInvalidRequest("unknown canal: " + string(canal)))
			}
			uso := lead.Uso(strings.ToLower(c.String("uso")))
			if uso != "" && !uso.Valid() {
				return outputError(errors.NewInvalidRequest("unknown uso: " + string(uso)))
			}
			urgencia := lead.Urgencia(strings.ToLower(c.String("urgencia")))
			if urgencia != "" && !urgencia.Valid() {
				return outputError(errors.NewInvalidRequest("unknown urgencia: " + string(urgencia)))
			}

			l := lead.New(canal, "")
			l.CurrentState = state
			l.ExtractedData = lead.ExtractedData{
				Nombre:            c.String("nombre"),
				Zona:              c.String("zona"),
				ImplementoInteres: c.String("implemento"),
				Urgencia:          urgencia,
				Maquina: lead.Maquina{
					Marca:  c.String("marca"),
					Modelo: c.String("modelo"),
					Uso:    uso,
				},
			}

			out := QualifyOutput{
				CurrentState:       state,
				AllowedTransitions: lead.AllowedTransitions(state),
				MissingData:        l.MissingData(),
				Qualified:          l.IsQualified(),
			}
			if next, ok := lead.NewMachine(l).SuggestNextState(); ok {
				out.SuggestedState = &next
			}
			return outputJSON(c.App.Writer, out)
		},
	}
}

// chatCmd creates the interactive chat command.
func chatCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Ask technical questions interactively (type 'salir' to quit)",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "lead", Usage: "Talk as a prospect; messages drive a lead through qualification"},
			&cli.StringFlag{Name: "canal", Value: string(lead.CanalWeb), Usage: "Lead channel in --lead mode"},
		},
		Action: func(c *cli.Context) error {
			w := c.App.Writer
			prompt := color.New(color.FgCyan, color.Bold)
			answer := color.New(color.FgGreen)
			info := color.New(color.FgHiBlack)
			warn := color.New(color.FgYellow)

			var leadID string
			if c.Bool("lead") {
				l, err := rt.sessions.Create(lead.Canal(c.String("canal")), "")
				if err != nil {
					return outputError(err)
				}
				leadID = l.ID
				info.Fprintf(w, "lead %s\n", leadID)
			}

			scanner := bufio.NewScanner(c.App.Reader)
			for {
				prompt.Fprint(w, "> ")
				if !scanner.Scan() {
					fmt.Fprintln(w)
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if isQuit(line) {
					return nil
				}

				if leadID != "" {
					var resp *advisor.MessageResponse
					err := rt.sessions.With(leadID, func(l *lead.Lead) error {
						var err error
						resp, err = rt.advisor.ProcessMessage(c.Context, l, line)
						return err
					})
					if err != nil {
						warn.Fprintf(w, "%s\n", cliMessage(err))
						continue
					}
					answer.Fprintln(w, resp.ReplyToUser)
					info.Fprintf(w, "[%s] faltan: %s\n", resp.StateTransition, strings.Join(resp.MissingData, ", "))
					if resp.CRMError != nil {
						warn.Fprintf(w, "[%s] %s\n", resp.CRMError.Code, resp.CRMError.Message)
					}
					continue
				}

				resp, err := rt.advisor.ProcessQuery(c.Context, line)
				if err != nil {
					warn.Fprintf(w, "%s\n", cliMessage(err))
					continue
				}
				answer.Fprintln(w, resp.TechnicalResponse)
				info.Fprintf(w, "[confianza: %s]\n", resp.Confidence)
				for _, r := range resp.RAGResults {
					info.Fprintf(w, "  - %s\n", r.DocumentID)
				}
			}
		},
	}
}

func isQuit(line string) bool {
	switch strings.ToLower(line) {
	case "salir", "exit", "quit":
		return true
	}
	return false
}

// serveCmd creates the serve command.
func serveCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the MCP server on stdio",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "metrics-addr", Usage: "Serve Prometheus metrics on this address, e.g. :9090"},
		},
		Action: func(c *cli.Context) error {
			if err := serve(c.Context, rt, c.String("metrics-addr")); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// Helper functions

// metadataFilters collects the non-empty metadata filter flags.
func metadataFilters(c *cli.Context) map[string]string {
	var filters map[string]string
	for _, name := range metadataFlags {
		if v := strings.TrimSpace(c.String(name)); v != "" {
			if filters == nil {
				filters = make(map[string]string)
			}
			filters[name] = v
		}
	}
	return filters
}

// outputJSON writes v to w as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	return cli.Exit(cliMessage(err), 1)
}

func cliMessage(err error) string {
	if aErr, ok := err.(*errors.AsesorError); ok {
		return fmt.Sprintf("[%s] %s", aErr.Code, aErr.Message)
	}
	return err.Error()
}
