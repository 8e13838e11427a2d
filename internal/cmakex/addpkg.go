package cmakex

import (
	"fmt"

	"github.com/cmakex/cmakex/internal/depscript"
	"github.com/cmakex/cmakex/internal/planner"
)

// addPkgOptions, addPkgSingleValue and addPkgMultiValue describe the
// add_pkg(NAME ...) keyword-argument grammar, ported from
// run_add_pkgs.cpp's parse_arguments call:
//
//	parse_arguments({"FULL_CLONE"},
//	                 {"GIT_REPOSITORY", "GIT_URL", "GIT_TAG", "SOURCE_DIR"},
//	                 {"DEPENDS", "CMAKE_ARGS", "CONFIGS"}, pkg_args)
var (
	addPkgOptions     = map[string]bool{"FULL_CLONE": true}
	addPkgSingleValue = map[string]bool{"GIT_REPOSITORY": true, "GIT_URL": true, "GIT_TAG": true, "SOURCE_DIR": true}
	addPkgMultiValue  = map[string]bool{"DEPENDS": true, "CMAKE_ARGS": true, "CONFIGS": true}
)

// parsedAddPkgArgs is the result of splitting an add_pkg call's
// argument list into CMake's options/single-value/multi-value buckets.
type parsedAddPkgArgs struct {
	options map[string]bool
	single  map[string]string
	multi   map[string][]string
}

func parseAddPkgArgs(args []string) (parsedAddPkgArgs, error) {
	r := parsedAddPkgArgs{options: map[string]bool{}, single: map[string]string{}, multi: map[string][]string{}}

	var currentKeyword string
	var currentMulti bool

	i := 0
	for i < len(args) {
		a := args[i]
		switch {
		case addPkgOptions[a]:
			r.options[a] = true
			currentKeyword = ""
			i++
		case addPkgSingleValue[a]:
			currentKeyword = a
			currentMulti = false
			i++
		case addPkgMultiValue[a]:
			currentKeyword = a
			currentMulti = true
			r.multi[a] = []string{}
			i++
		default:
			if currentKeyword == "" {
				return parsedAddPkgArgs{}, fmt.Errorf("unexpected add_pkg argument %q with no preceding keyword", a)
			}
			if currentMulti {
				r.multi[currentKeyword] = append(r.multi[currentKeyword], a)
			} else {
				if _, already := r.single[currentKeyword]; already {
					return parsedAddPkgArgs{}, fmt.Errorf("duplicate value for %s", currentKeyword)
				}
				r.single[currentKeyword] = a
			}
			i++
		}
	}
	return r, nil
}

// requestFromAddPkgCall translates one add_pkg invocation recorded by
// the script evaluator adapter into a planner.Request.
func requestFromAddPkgCall(call depscript.AddPkgCall) (planner.Request, error) {
	parsed, err := parseAddPkgArgs(call.Args)
	if err != nil {
		return planner.Request{}, fmt.Errorf("add_pkg(%s): %w", call.Name, err)
	}

	_, hasURL := parsed.single["GIT_URL"]
	_, hasRepo := parsed.single["GIT_REPOSITORY"]
	if hasURL && hasRepo {
		return planner.Request{}, fmt.Errorf("add_pkg(%s): both GIT_URL and GIT_REPOSITORY are specified", call.Name)
	}

	url := parsed.single["GIT_URL"]
	if url == "" {
		url = parsed.single["GIT_REPOSITORY"]
	}

	return planner.Request{
		Name:          call.Name,
		URL:           url,
		Ref:           parsed.single["GIT_TAG"],
		Shallow:       !parsed.options["FULL_CLONE"],
		SourceSubPath: parsed.single["SOURCE_DIR"],
		ConfigureArgs: parsed.multi["CMAKE_ARGS"],
		Configs:       parsed.multi["CONFIGS"],
		Dependencies:  parsed.multi["DEPENDS"],
	}, nil
}
