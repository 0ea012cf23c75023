/*
Package config loads the registry's deployment-time configuration from
a YAML file (gopkg.in/yaml.v3), producing a registry.Config plus the
bind/logging/metrics settings cmd/scmd needs to wire everything
together.
*/
package config
