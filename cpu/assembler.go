// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = func() map[string]string {
	equ := maps.Clone(_cpu_defines)
	equ["LINENO"] = "0"
	equ["ADDR"] = "0"
	return equ
}()

var (
	reCharacter  = regexp.MustCompile(`'\\?[^']'`)
	reExpression = regexp.MustCompile(`\$\([^\$]*\)`)
	reLabel      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Assembler is a single pass macro assembler for the LS-8.
type Assembler struct {
	Verbose   bool        // If set, verbosely logs the assembler actions.
	Statement []Statement // List of generated statements.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of jump labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	address   int // Address of the next statement.
	expansion int // Count of macro expansions, for '@' local labels.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value int, err error) {
	invert := false
	if len(word) > 1 && word[0] == '~' {
		invert = true
		word = word[1:]
	}

	v64, err := strconv.ParseInt(word, 0, 32)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	value = int(v64)
	if invert {
		value = ^value
	}

	return
}

// byteOf returns the value of a word that must fit in a byte.
func (asm *Assembler) byteOf(word string) (value byte, err error) {
	v, err := asm.valueOf(word)
	if err != nil {
		return
	}

	if v < -128 || v > 0xff {
		err = ErrParseNumber(word)
		return
	}

	value = byte(v)
	return
}

// registerOf returns the register index named by word.
func (asm *Assembler) registerOf(word string) (index byte, err error) {
	word = strings.ToUpper(word)
	if len(word) != 2 || word[0] != 'R' || word[1] < '0' || word[1] >= '0'+REG_COUNT {
		err = ErrParseRegister(word)
		return
	}

	index = word[1] - '0'
	return
}

// immediate returns a byte value, or the label it must be linked to.
func (asm *Assembler) immediate(word string) (value byte, label string, err error) {
	value, err = asm.byteOf(word)
	if err == nil {
		return
	}

	if reLabel.MatchString(word) {
		err = nil
		label = word
	}

	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var v int
		v, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt(v)
	}
	for key, addr := range asm.Label {
		pred[key] = starlark.MakeInt(addr)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = int(st_int64)
	return
}

// outsideQuotes applies fn to each part of line not inside a "string".
func outsideQuotes(line string, fn func(string) string) string {
	var sb strings.Builder
	for n, part := range strings.Split(line, `"`) {
		if n > 0 {
			sb.WriteString(`"`)
		}
		if n%2 == 0 {
			part = fn(part)
		}
		sb.WriteString(part)
	}
	return sb.String()
}

// stripComment removes a ';' comment that is not quoted.
func stripComment(text string) string {
	var quote rune
	escaped := false
	for n, ch := range text {
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && quote != 0:
			escaped = true
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == ';':
			return text[:n]
		}
	}
	return text
}

// splitWords splits a line at spaces and commas, keeping "strings" whole.
func splitWords(line string) (words []string) {
	var word strings.Builder
	quoted := false
	escaped := false

	flush := func() {
		if word.Len() > 0 {
			words = append(words, word.String())
			word.Reset()
		}
	}

	for _, ch := range line {
		switch {
		case escaped:
			escaped = false
			word.WriteRune(ch)
		case quoted && ch == '\\':
			escaped = true
			word.WriteRune(ch)
		case ch == '"':
			quoted = !quoted
			word.WriteRune(ch)
		case !quoted && (ch == ' ' || ch == '\t' || ch == ','):
			flush()
		default:
			word.WriteRune(ch)
		}
	}
	flush()

	return
}

// parseLine parses a single line as a statement.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number and address.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)
	asm.Equate["ADDR"] = fmt.Sprintf("%v", asm.currentAddress())

	// Do 'x' evaluations
	line = outsideQuotes(line, func(part string) string {
		return reCharacter.ReplaceAllStringFunc(part, func(word string) string {
			str := word[1 : len(word)-1]
			if str[0] == '\\' {
				str = str[1:]
				switch str {
				case "\\":
					str = "\\"
				case "n":
					str = "\n"
				case "r":
					str = "\r"
				case "t":
					str = "\t"
				case "0":
					str = "\000"
				case "e":
					str = "\033"
				default:
					return word
				}
			} else if len(str) != 1 {
				return word
			}
			return fmt.Sprintf("%v", str[0])
		})
	})

	// Do $() evaluations
	line = outsideQuotes(line, func(part string) string {
		return reExpression.ReplaceAllStringFunc(part, func(str string) string {
			value, _err := asm.parenEval(str[2 : len(str)-1])
			if _err != nil {
				err = _err
			}
			return fmt.Sprintf("%v", value)
		})
	})
	if err != nil {
		return
	}

	words = splitWords(line)

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if strings.ToLower(words[0]) == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.currentAddress()
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		asm.expansion++
		local := fmt.Sprintf("%v_%v_", name, asm.expansion)
		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", local)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = ErrMacro{Macro: name, Line: lineno, Err: err}
				err = ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = ErrMacro{Macro: name, Line: lineno, Err: err}
				err = ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// currentAddress gets the address of the next statement.
func (asm *Assembler) currentAddress() int {
	return asm.address
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Statement = asm.Statement[:0]
	asm.address = 0
	asm.expansion = 0
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		line = strings.TrimSpace(stripComment(text))
		words := splitWords(line)

		// .macro NAME arg...
		if len(words) > 0 && strings.ToLower(words[0]) == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && strings.ToLower(words[0]) == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of labels.
	for n := range asm.Statement {
		stmt := &asm.Statement[n]

		for offset, label := range stmt.Links {
			lineno = stmt.LineNo
			line = strings.Join(stmt.Words, " ")

			addr, ok := asm.Label[label]
			if !ok {
				err = ErrLabelMissing(label)
				return
			}
			if addr > 0xff {
				err = ErrLabelRange
				return
			}
			stmt.Bytes[offset] = byte(addr)
		}
	}

	prog = &Program{
		Statements: slices.Clone(asm.Statement),
	}

	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var data []byte
	var links map[int]string

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if len(data) == 0 {
			return
		}
		stmt := Statement{LineNo: lineno, Address: asm.currentAddress(), Words: initial_words, Bytes: data, Links: links}
		asm.Statement = append(asm.Statement, stmt)
		asm.address += len(data)
	}()

	link := func(offset int, label string) {
		if links == nil {
			links = make(map[int]string)
		}
		links[offset] = label
	}

	args := words[1:]

	switch mnemonic := strings.ToUpper(words[0]); mnemonic {
	case ".ORG":
		if len(args) != 1 {
			err = ErrOrgSyntax
			return
		}
		var addr int
		addr, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		if addr < asm.currentAddress() {
			err = ErrOrgBackward
			return
		}
		asm.address = addr
	case "DB", ".BYTE":
		if len(args) == 0 {
			err = ErrOpcodeValueMissing
			return
		}
		for _, arg := range args {
			var value byte
			var label string
			value, label, err = asm.immediate(arg)
			if err != nil {
				return
			}
			if len(label) != 0 {
				link(len(data), label)
			}
			data = append(data, value)
		}
	case "DS", ".STRING":
		if len(args) != 1 {
			err = ErrStringSyntax
			return
		}
		var text string
		text, err = strconv.Unquote(args[0])
		if err != nil || len(text) == 0 {
			err = ErrStringSyntax
			return
		}
		data = []byte(text)
	default:
		op, ok := opcodeByName[mnemonic]
		if !ok {
			err = ErrInstructionInvalid
			return
		}
		var inst Instruction
		inst, err = Decode(byte(op))
		if err != nil {
			return
		}
		if len(args) > inst.Operands {
			err = ErrOpcodeExtraArgs
			return
		}
		if len(args) < inst.Operands {
			err = ErrOpcodeValueMissing
			return
		}
		operands := make([]byte, inst.Operands)
		for n, arg := range args {
			if inst.Immediate(n) {
				var label string
				operands[n], label, err = asm.immediate(arg)
				if len(label) != 0 {
					link(1+n, label)
				}
			} else {
				operands[n], err = asm.registerOf(arg)
			}
			if err != nil {
				return
			}
		}
		data = inst.Encode(operands...)
	}

	return
}
