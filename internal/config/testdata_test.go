package config

const validRouteYAML = `
apiVersion: avarouter.io/v1
kind: RouteTable
metadata:
  name: demo
spec:
  server:
    address: ":9000"
    readTimeout: 5s
  logging:
    level: debug
    format: console
  cache:
    type: memory
    ttl: 1m
    maxEntries: 100
  middleware:
    global:
      - requestid
      - ref: recovery
        priority: 10
    aliases:
      log: logging
    groups:
      web: [log, nocache]
      admin: [web, "headers:X-Admin=1"]
  routes:
    - name: home
      methods: [GET]
      path: /
      handler: ok
    - name: user
      methods: [GET, PUT]
      path: /users/{id}
      handler: echo
      constraints:
        id: '\d+'
      middleware:
        - ref: admin
          when: request.method == "PUT"
      withoutMiddleware: [nocache]
  groups:
    - name: api.
      prefix: /api
      host: "{tenant}.example.com"
      middleware: ["ratelimit:10:20"]
      routes:
        - name: ping
          methods: [GET]
          path: /ping
          handler: "text:pong"
      groups:
        - name: v1.
          prefix: /v1
          routes:
            - name: items
              methods: [GET]
              path: /items/{slug?}
              handler: echo
              defaults:
                slug: all
`

const validRouteTOML = `
apiVersion = "avarouter.io/v1"
kind = "RouteTable"

[metadata]
name = "demo"

[spec.server]
address = ":9000"
readTimeout = "5s"

[spec.cache]
type = "file"
ttl = "2m"

[spec.cache.file]
path = "/tmp/routes.cache"

[spec.middleware]
global = ["requestid", { ref = "recovery", priority = 10 }]

[spec.middleware.aliases]
log = "logging"

[spec.middleware.groups]
web = ["log", "nocache"]

[[spec.routes]]
name = "user"
methods = ["GET"]
path = "/users/{id}"
handler = "echo"
ports = [8080, 8443]
middleware = [{ ref = "web", when = "request.scheme == 'https'" }]

[spec.routes.constraints]
id = '\d+'
`
