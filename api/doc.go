// Package api provides a small client for JSON-over-HTTP GET endpoints.
//
// Every response body is parsed into a [jsonobj.Object], and every failure is
// normalized into an [apierror.Error], whether it came from the network, an
// HTTP error status or a missing response.
//
// # Usage
//
//	logger := zerolog.New(os.Stderr)
//	client, err := api.NewClient(api.Config{
//		BaseURL: "https://api.example.com",
//		Verbose: api.VerboseErrors,
//	}, logger, api.WithHook(prompt.NewTerminal(os.Stdin, os.Stderr)))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	done := client.Go(ctx, api.Request{
//		Endpoint: "/items",
//		Params:   api.Params{"page": 1},
//	}, api.Handlers{
//		OnSuccess: func(obj *jsonobj.Object) {
//			for _, item := range obj.Array("items") {
//				fmt.Println(item.Int("id"))
//			}
//		},
//	})
//	<-done
//
// # Connectivity retries
//
// When an attempt fails because the network is unreachable (see
// [apierror.IsConnectivityCode]) and a [Hook] is available, the hook is asked
// whether to try again. Confirming re-issues the identical request. The
// error of the failed attempt is delivered before the prompt, so callers see
// it even when the user retries. Without a hook the loop ends after logging
// "Error: not connected.".
//
// # Verbosity
//
// Config.Verbose gates the client's own logging: at [VerboseErrors] success
// and error markers plus unhandled errors are logged, at [VerboseBodies]
// every response body is dumped as indented JSON.
package api
