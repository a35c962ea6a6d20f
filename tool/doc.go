/*
Package tool turns Go functions into tools a model can call by name.

A tool is defined by its function and a little metadata:

	def := tool.Must(weather,
		tool.Name("weather"),
		tool.Description("Get current weather information for a specified location."),
		tool.Parameters("location"),
	)

Parameters are bound by name, in declaration order. Parameters that are not
named with Parameters are called param0, param1 and so on. A leading
context.Context parameter is supplied by the dispatcher and is not part of the
schema. Pointer parameters are optional; all others are required.

The JSON schema of the parameters is derived from the function signature by
reflection, unless one is supplied with the Schema option.

# Registry

A Registry holds the tools available to the orchestrator. It is filled at
startup and read concurrently afterwards:

	reg := tool.NewRegistry()
	if err := reg.Register(def); err != nil {
		return err
	}
	entry, ok := reg.Lookup("weather")

Registering a name twice replaces the earlier tool and logs a warning. Each
registered schema is compiled once so parameters can be validated before the
function runs.

# Failures

A function may report that it was called with bad parameters by returning an
error that wraps ErrInvalidParams, or a *ParamError. Any other error is an
execution failure. Neither ever escapes the dispatcher; both are reported back
to the model as text.
*/
package tool
