package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-semnet/pkg/explain"
	"github.com/dd0wney/cluso-semnet/pkg/inference"
	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
)

// repl is the numbered menu of the console. It reads one answer per line and
// returns when the input ends or the user picks 0.
type repl struct {
	app     *app
	scanner *bufio.Scanner
	out     io.Writer
}

func newREPL(a *app, in io.Reader, out io.Writer) *repl {
	return &repl{app: a, scanner: bufio.NewScanner(in), out: out}
}

const menu = `
============================================================
MEDICAL DIAGNOSIS EXPERT SYSTEM
============================================================

Available operations:
  1. Diagnose by symptoms
  2. Check whether X is a subtype of Y
  3. Symptoms of a disease
  4. Treatments of a disease
  5. Diseases in a category
  6. Concept information
  7. Knowledge base summary
  8. List all diseases
  9. List all symptoms
  0. Exit
============================================================`

func (r *repl) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

func (r *repl) println(args ...any) {
	fmt.Fprintln(r.out, args...)
}

// prompt prints label and returns the next trimmed line, or false at EOF.
func (r *repl) prompt(label string) (string, bool) {
	r.printf("%s", label)
	if !r.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(r.scanner.Text()), true
}

func (r *repl) run() {
	st := r.app.engine.Store().Statistics()
	r.printf("Knowledge base loaded: %d nodes, %d relations\n", st.Nodes, st.Relations)

	for {
		r.println(menu)
		choice, ok := r.prompt("Choose an operation: ")
		if !ok || choice == "0" || choice == "exit" || choice == "quit" {
			r.println("\nShutting down the expert system...")
			return
		}

		switch choice {
		case "1":
			r.diagnose()
		case "2":
			r.subtype()
		case "3":
			r.listFor("SYMPTOMS OF A DISEASE", r.app.engine.Symptoms)
		case "4":
			r.listFor("TREATMENTS", r.app.engine.Treatments)
		case "5":
			r.category()
		case "6":
			r.info()
		case "7":
			r.println(explain.Summary(r.app.engine.Store()))
		case "8":
			r.listType("ALL DISEASES", knowledge.TypeDisease)
		case "9":
			r.listType("ALL SYMPTOMS", knowledge.TypeSymptom)
		default:
			r.println("Invalid choice, enter a number from 0 to 9.")
		}
	}
}

// pick shows names numbered from 1 and returns the chosen one.
func (r *repl) pick(title string, names []string) (string, bool) {
	r.printf("\nAvailable %s:\n", title)
	for i, n := range names {
		r.printf("  %d. %s\n", i+1, n)
	}
	answer, ok := r.prompt("Enter a number: ")
	if !ok {
		return "", false
	}
	i, err := strconv.Atoi(answer)
	if err != nil {
		r.println("Error: enter a number!")
		return "", false
	}
	if i < 1 || i > len(names) {
		r.println("Error: invalid number!")
		return "", false
	}
	return names[i-1], true
}

func (r *repl) diagnose() {
	r.println("\n--- DIAGNOSIS BY SYMPTOMS ---")
	symptoms := r.app.engine.Store().NodesByType(knowledge.TypeSymptom)
	r.println("\nAvailable symptoms:")
	for i, s := range symptoms {
		r.printf("  %d. %s\n", i+1, s)
	}
	r.println("\nEnter symptom numbers separated by commas (for example: 1,3,5)")
	r.println("or 'all' to select every symptom:")
	answer, ok := r.prompt("Your choice: ")
	if !ok {
		return
	}

	var selected []string
	if strings.EqualFold(answer, "all") {
		selected = symptoms
	} else {
		for _, part := range strings.Split(answer, ",") {
			i, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				r.println("Error: invalid input!")
				return
			}
			if i >= 1 && i <= len(symptoms) {
				selected = append(selected, symptoms[i-1])
			}
		}
	}
	if len(selected) == 0 {
		r.println("No symptoms selected!")
		return
	}

	r.printf("\nSelected symptoms: %s\n\n", strings.Join(selected, ", "))
	results, _ := r.app.engine.Diagnose(selected)
	r.println(r.app.explainer.Diagnosis(selected, results))
}

func (r *repl) subtype() {
	r.println("\n--- SUBTYPE CHECK ---")
	a, ok := r.prompt("First concept: ")
	if !ok {
		return
	}
	b, ok := r.prompt("Second concept: ")
	if !ok {
		return
	}
	if a == "" || b == "" {
		r.println("Error: both concepts are required!")
		return
	}
	result, trace := r.app.engine.IsSubtypeOf(a, b)
	r.println(explain.Subtype(a, b, result, trace))
}

func (r *repl) listFor(title string, query func(string) ([]string, *inference.Trace)) {
	r.printf("\n--- %s ---\n", title)
	disease, ok := r.pick("diseases", r.app.engine.Store().NodesByType(knowledge.TypeDisease))
	if !ok {
		return
	}
	names, _ := query(disease)
	r.println()
	printList(r.out, disease, names)
	r.println("\n" + r.app.explainer.LastInference())
}

func (r *repl) category() {
	r.println("\n--- DISEASES IN A CATEGORY ---")
	category, ok := r.pick("categories", r.app.engine.Store().NodesByType(knowledge.TypeCategory))
	if !ok {
		return
	}
	names, _ := r.app.engine.DiseasesByCategory(category)
	r.println()
	printList(r.out, "Diseases in "+category, names)
}

func (r *repl) info() {
	r.println("\n--- CONCEPT INFORMATION ---")
	name, ok := r.prompt("Concept name: ")
	if !ok {
		return
	}
	if name == "" {
		r.println("Error: the concept name cannot be empty!")
		return
	}
	info, _ := r.app.engine.RelatedInfo(name)
	r.println(explain.Concept(name, info))
}

func (r *repl) listType(title string, typ knowledge.NodeType) {
	r.printf("\n--- %s ---\n", title)
	for i, n := range r.app.engine.Store().NodesByType(typ) {
		node := r.app.engine.Store().Get(n)
		if node.Description != "" {
			r.printf("  %d. %s - %s\n", i+1, n, node.Description)
		} else {
			r.printf("  %d. %s\n", i+1, n)
		}
	}
}
