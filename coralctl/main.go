package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/docopt/docopt-go"

	"golang.org/x/term"

	"github.com/coraldb/coral-go/coral"
)

const CoralCtlVersion = "0.1.0"

var Out *log.Logger
var Err *log.Logger

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)
}

func main() {
	usage := `Coral control.

Queries and inspects a coral service over its websocket protocol.
Filters use the form <column><op><value> where <op> is one of
== != < <= > >=, e.g. --where='age>20'.

Usage:
    coralctl get --url=<url> [--jwt=<jwt>] --collection=<collection>
        [--partition=<partition>]... <id>
    coralctl query --url=<url> [--jwt=<jwt>] --collection=<collection>
        [--where=<where>]...
        [--sort=<sort>]...
        [--limit=<limit>]
        [--continuation=<continuation>]
        [--partition=<partition>]...
    coralctl count --url=<url> [--jwt=<jwt>] --collection=<collection>
        [--where=<where>]...
        [--partition=<partition>]...
    coralctl schema --url=<url> [--jwt=<jwt>]
    coralctl ping --url=<url> [--jwt=<jwt>] [--count=<count>]

Options:
    -h --help                        Show this screen.
    --version                        Show version.
    --url=<url>                      Service websocket url, e.g. wss://db.example.com/wire
    --jwt=<jwt>                      Bearer JWT. Prompted for when omitted on a terminal.
    --collection=<collection>        Collection name.
    --where=<where>                  Filter, repeatable. All filters are ANDed.
    --partition=<partition>          Partition value, <key>=<value>, repeatable.
    --sort=<sort>                    Sort key, <column>:asc or <column>:desc, repeatable.
    --limit=<limit>                  Max records per page.
    --continuation=<continuation>    Resume token from a previous page.
    --count=<count>                  Ping this many times then exit.`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], CoralCtlVersion)
	if err != nil {
		panic(err)
	}

	if get_, _ := opts.Bool("get"); get_ {
		get(opts)
	} else if query_, _ := opts.Bool("query"); query_ {
		query(opts)
	} else if count_, _ := opts.Bool("count"); count_ {
		count(opts)
	} else if schema_, _ := opts.Bool("schema"); schema_ {
		schema(opts)
	} else if ping_, _ := opts.Bool("ping"); ping_ {
		ping(opts)
	}
}

func dial(opts docopt.Opts) *coral.PlatformTransport {
	url, _ := opts.String("--url")
	jwt, _ := opts.String("--jwt")

	if jwt == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Print("JWT: ")
		jwtBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			Err.Fatalf("Could not read JWT (%s).", err)
		}
		jwt = strings.TrimSpace(string(jwtBytes))
	}

	auth := &coral.ClientAuth{
		ByJwt:      jwt,
		InstanceId: coral.NewId(),
		AppVersion: fmt.Sprintf("coralctl %s", CoralCtlVersion),
	}

	transport, err := coral.NewPlatformTransportWithDefaults(context.Background(), url, auth)
	if err != nil {
		Err.Fatalf("Could not connect to %s (%s).", url, err)
	}
	return transport
}

func call[R any](transport *coral.PlatformTransport, op string, payload any) R {
	envelope, err := coral.NewEnvelope(op, payload)
	if err != nil {
		Err.Fatalf("Could not encode request (%s).", err)
	}
	response, err := transport.Send(context.Background(), envelope)
	if err != nil {
		Err.Fatalf("Request failed (%s).", err)
	}
	result, err := coral.DecodePayload[R](response)
	if err != nil {
		Err.Fatalf("Request failed (%s).", err)
	}
	return result
}

func get(opts docopt.Opts) {
	collection, _ := opts.String("--collection")
	id, _ := opts.String("<id>")

	transport := dial(opts)
	defer transport.Close()

	getResult := call[coral.GetResult](transport, coral.OpGet, &coral.GetRequest{
		Collection:      collection,
		Id:              id,
		PartitionValues: parsePartitions(opts),
	})
	if getResult.Record == nil {
		Out.Printf("(no record)")
		return
	}
	printJson(getResult.Record)
}

func query(opts docopt.Opts) {
	collection, _ := opts.String("--collection")

	fetchRequest := &coral.FetchRequest{
		Collection:      collection,
		Predicate:       parseWheres(opts),
		PartitionValues: parsePartitions(opts),
	}
	for _, sortStr := range stringList(opts, "--sort") {
		sortKey, err := parseSort(sortStr)
		if err != nil {
			Err.Fatalf("Invalid sort %q (%s).", sortStr, err)
		}
		fetchRequest.SortKeys = append(fetchRequest.SortKeys, sortKey)
	}
	if limitStr, err := opts.String("--limit"); err == nil && limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			Err.Fatalf("Invalid limit %q.", limitStr)
		}
		fetchRequest.Limit = &limit
	}
	if continuation, err := opts.String("--continuation"); err == nil {
		fetchRequest.Continuation = continuation
	}

	transport := dial(opts)
	defer transport.Close()

	fetchResult := call[coral.FetchResult](transport, coral.OpFetch, fetchRequest)
	for _, record := range fetchResult.Records {
		printJson(record)
	}
	if fetchResult.Continuation != "" {
		Out.Printf("(more: --continuation=%s)", fetchResult.Continuation)
	}
}

func count(opts docopt.Opts) {
	collection, _ := opts.String("--collection")

	transport := dial(opts)
	defer transport.Close()

	countResult := call[coral.CountResult](transport, coral.OpCount, &coral.CountRequest{
		Collection:      collection,
		Predicate:       parseWheres(opts),
		PartitionValues: parsePartitions(opts),
	})
	Out.Printf("%d", countResult.Count)
}

func schema(opts docopt.Opts) {
	transport := dial(opts)
	defer transport.Close()

	schemaResult := call[coral.SchemaResult](transport, coral.OpSchema, nil)
	for _, entity := range schemaResult.Entities {
		printJson(entity)
	}
}

// ping uses the schema operation as the liveness probe.
func ping(opts docopt.Opts) {
	pingCount := 4
	if countStr, err := opts.String("--count"); err == nil && countStr != "" {
		var err error
		pingCount, err = strconv.Atoi(countStr)
		if err != nil {
			Err.Fatalf("Invalid count %q.", countStr)
		}
	}

	transport := dial(opts)
	defer transport.Close()

	for i := 0; i < pingCount; i += 1 {
		reconnect := coral.NewReconnect(1 * time.Second)
		startTime := time.Now()
		call[coral.SchemaResult](transport, coral.OpSchema, nil)
		Out.Printf("reply %d: %s", i, time.Since(startTime))
		<-reconnect.After()
	}
}

func parsePartitions(opts docopt.Opts) coral.PartitionValues {
	partitionStrs := stringList(opts, "--partition")
	if len(partitionStrs) == 0 {
		return nil
	}
	partitionValues := coral.PartitionValues{}
	for _, partitionStr := range partitionStrs {
		key, valueStr, ok := strings.Cut(partitionStr, "=")
		if !ok {
			Err.Fatalf("Invalid partition %q (must be <key>=<value>).", partitionStr)
		}
		partitionValues[strings.TrimSpace(key)] = parsePartitionValue(strings.TrimSpace(valueStr))
	}
	return partitionValues
}

func parsePartitionValue(valueStr string) any {
	if i, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return i
	}
	if valueStr == "true" || valueStr == "false" {
		return valueStr == "true"
	}
	return strings.Trim(valueStr, `'"`)
}

func parseWheres(opts docopt.Opts) *coral.Expr {
	var predicate *coral.Expr
	for _, whereStr := range stringList(opts, "--where") {
		where, err := parseWhere(whereStr)
		if err != nil {
			Err.Fatalf("Invalid filter %q (%s).", whereStr, err)
		}
		if predicate == nil {
			predicate = where
		} else {
			predicate = coral.And(predicate, where)
		}
	}
	return predicate
}

var whereOps = []struct {
	token   string
	compare func(column string, value *coral.Literal) *coral.Expr
}{
	// two-char tokens first so "<=" does not parse as "<"
	{"==", coral.Equal},
	{"!=", coral.NotEqual},
	{"<=", coral.LessThanOrEqual},
	{">=", coral.GreaterThanOrEqual},
	{"<", coral.LessThan},
	{">", coral.GreaterThan},
}

func parseWhere(whereStr string) (*coral.Expr, error) {
	for _, op := range whereOps {
		if column, valueStr, ok := strings.Cut(whereStr, op.token); ok {
			return op.compare(strings.TrimSpace(column), parseLiteral(strings.TrimSpace(valueStr))), nil
		}
	}
	return nil, fmt.Errorf("no comparison operator")
}

func parseLiteral(valueStr string) *coral.Literal {
	if valueStr == "null" {
		return coral.Null()
	}
	if i, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return coral.Int(i)
	}
	if d, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return coral.Double(d)
	}
	if valueStr == "true" || valueStr == "false" {
		return coral.Bool(valueStr == "true")
	}
	return coral.String(strings.Trim(valueStr, `'"`))
}

func parseSort(sortStr string) (coral.SortKey, error) {
	column, directionStr, ok := strings.Cut(sortStr, ":")
	if !ok {
		return coral.SortKey{Column: column, Direction: coral.Ascending}, nil
	}
	switch directionStr {
	case "asc":
		return coral.SortKey{Column: column, Direction: coral.Ascending}, nil
	case "desc":
		return coral.SortKey{Column: column, Direction: coral.Descending}, nil
	default:
		return coral.SortKey{}, fmt.Errorf("direction must be asc or desc")
	}
}

func stringList(opts docopt.Opts, key string) []string {
	values := []string{}
	if raw, ok := opts[key]; ok {
		switch v := raw.(type) {
		case []string:
			values = v
		case string:
			if v != "" {
				values = []string{v}
			}
		}
	}
	return values
}

func printJson(value any) {
	valueJson, err := json.MarshalIndent(value, "", "    ")
	if err != nil {
		Err.Fatalf("Could not encode output (%s).", err)
	}
	Out.Printf("%s", valueJson)
}
