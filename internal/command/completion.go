// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/concord-consortium/cloudops/internal/meta"
)

const bashCompletionScript = `# bash completion for cloudops
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_cloudops()
{
    local cur prev group sub
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "bucket cf stack logs env whoami completion --help --version" -- "$cur") )
        return 0
    fi

    group=${COMP_WORDS[1]}
    sub=${COMP_WORDS[2]}
    local report="--attrs -a --color -c --file --filter -f --local -l --output -o --padding --schema --sort -s --titles -t"
    local aws="--profile -p --region -r"

    if [[ ${COMP_CWORD} -eq 2 ]]; then
        case "$group" in
            bucket) COMPREPLY=( $(compgen -W "list update-tags update-cors" -- "$cur") ) ;;
            cf)     COMPREPLY=( $(compgen -W "list update" -- "$cur") ) ;;
            stack)  COMPREPLY=( $(compgen -W "save inspect create" -- "$cur") ) ;;
            logs)   COMPREPLY=( $(compgen -W "compare add-id copy-missed" -- "$cur") ) ;;
            env)    COMPREPLY=( $(compgen -W "convert" -- "$cur") ) ;;
            whoami) COMPREPLY=( $(compgen -W "$report $aws" -- "$cur") ) ;;
            completion) COMPREPLY=( $(compgen -W "bash zsh" -- "$cur") ) ;;
        esac
        return 0
    fi

    local opts=""
    case "$group $sub" in
        "bucket list")        opts="$report $aws" ;;
        "bucket update-tags") opts="$aws --apply --file" ;;
        "bucket update-cors") opts="$aws --apply --bucket -b --rules" ;;
        "cf list")            opts="$report $aws" ;;
        "cf update")          opts="$aws --apply --color -c --delay --diff --force --id --mode -m" ;;
        "stack save")         opts="$aws --dir --file --stack" ;;
        "stack inspect")      opts="--dir --file" ;;
        "stack create")       opts="$aws --apply --file" ;;
        "logs compare")       opts="$aws" ;;
        "logs add-id")        opts="$aws --apply" ;;
        "logs copy-missed")   opts="$aws --apply --dir --keys-file" ;;
        "env convert")        opts="--file" ;;
        whoami*)              opts="$report $aws" ;;
    esac

    case "$prev" in
        --output|-o)
            COMPREPLY=( $(compgen -W "csv text json yaml raw" -- "$cur") )
            return 0
            ;;
        --mode|-m)
            COMPREPLY=( $(compgen -W "cors-policy origin-header" -- "$cur") )
            return 0
            ;;
        --file|--rules|--keys-file)
            COMPREPLY=( $(compgen -f -- "$cur") )
            return 0
            ;;
        --dir)
            COMPREPLY=( $(compgen -o dirnames -- "$cur") )
            return 0
            ;;
    esac

    if [[ "$group" == "logs" && "$cur" != -* && ${COMP_CWORD} -eq 3 ]]; then
        COMPREPLY=( $(compgen -W "production staging" -- "$cur") )
        return 0
    fi

    COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
    return 0
}

complete -F _cloudops cloudops
`

const zshCompletionScript = `#compdef cloudops

_cloudops() {
  local -a groups
  groups=(
    'bucket:S3 bucket inventory and bulk updates'
    'cf:CloudFront distribution inventory and bulk updates'
    'stack:CloudFormation parameter sets and stack creation'
    'logs:Parquet log archive migration'
    'env:environment definition helpers'
    'whoami:show the AWS identity in use'
    'completion:generate shell completion script'
  )

  local -a report
  report=(
  '(-a --attrs)'{-a,--attrs}'[attributes to include]:attrs'
  '(-c --color)'{-c,--color}'[enable colored text]'
  '--file[file to write results to]:file:_files'
  '(-f --filter)'{-f,--filter}'[filters to apply]:filters'
  '(-l --local)'{-l,--local}'[show local timestamps]'
  '(-o --output)'{-o,--output}'[output format]:format:(csv text json yaml raw)'
  '--padding[spaces between text columns]:padding'
  '--schema[dump record attributes]'
  '(-s --sort)'{-s,--sort}'[sort attributes]:attrs'
  '(-t --titles)'{-t,--titles}'[show titles]'
  )

  local -a aws
  aws=(
  '(-p --profile)'{-p,--profile}'[AWS profile]:profile'
  '(-r --region)'{-r,--region}'[AWS region]:region'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'cloudops commands' groups
    return
  fi

  if (( CURRENT == 3 )); then
    case $words[2] in
      bucket) _values 'bucket command' list update-tags update-cors ;;
      cf) _values 'cf command' list update ;;
      stack) _values 'stack command' save inspect create ;;
      logs) _values 'logs command' compare add-id copy-missed ;;
      env) _values 'env command' convert ;;
      whoami) _arguments $report $aws ;;
      completion) _values 'shell' bash zsh ;;
    esac
    return
  fi

  case "$words[2] $words[3]" in
    "bucket list"|"cf list")
      _arguments $report $aws
      ;;
    "bucket update-tags")
      _arguments $aws '--apply[make the changes]' '--file[tag sheet]:file:_files' '::sheet:_files'
      ;;
    "bucket update-cors")
      _arguments $aws '--apply[make the changes]' '(-b --bucket)'{-b,--bucket}'[only these buckets]:bucket' '--rules[CORS rules file]:file:_files'
      ;;
    "cf update")
      _arguments $aws \
        '--apply[make the changes]' \
        '(-c --color)'{-c,--color}'[color the diff]' \
        '--delay[time between updates]:delay' \
        '--diff[print config deltas]' \
        '--force[modify every behavior of --id distributions]' \
        '--id[distribution id]:id' \
        '(-m --mode)'{-m,--mode}'[modification]:mode:(cors-policy origin-header)'
      ;;
    "stack save")
      _arguments $aws '--dir[parameter set directory]:dir:_directories' '--file[file name]:file' '--stack[stack name]:stack'
      ;;
    "stack inspect")
      _arguments '--dir[parameter set directory]:dir:_directories' '--file[parameter set]:file:_files'
      ;;
    "stack create")
      _arguments $aws '--apply[create the stack]' '--file[create config]:file:_files' '::config:_files'
      ;;
    "logs compare")
      _arguments $aws '1:environment:(production staging)'
      ;;
    "logs add-id")
      _arguments $aws '--apply[make the changes]' '1:environment:(production staging)'
      ;;
    "logs copy-missed")
      _arguments $aws '--apply[make the changes]' '--dir[target directory]:dir:_directories' '--keys-file[keys file]:file:_files' '1:environment:(production staging)' '*:key'
      ;;
    "env convert")
      _arguments '--file[environment definition]:file:_files' '::environment:_files'
      ;;
  esac
}

if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _cloudops cloudops
`

func completionCommandAction(_ context.Context, cmd *cli.Command) error {
	shell := ""
	if args := cmd.Args().Slice(); len(args) > 0 {
		shell = args[0]
	}
	switch shell {
	case "bash":
		fmt.Fprint(stdout, bashCompletionScript)
	case "zsh":
		fmt.Fprint(stdout, zshCompletionScript)
	default:
		// Try to detect from SHELL or print help
		sh := os.Getenv("SHELL")
		switch {
		case strings.HasSuffix(sh, "zsh"):
			fmt.Fprint(stdout, zshCompletionScript)
		case strings.HasSuffix(sh, "bash"):
			fmt.Fprint(stdout, bashCompletionScript)
		default:
			fmt.Fprintln(os.Stderr, "usage: cloudops completion [bash|zsh]")
			return nil
		}
	}
	return nil
}

func completionCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "cloudops completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: completionCommandAction,
	}
}
