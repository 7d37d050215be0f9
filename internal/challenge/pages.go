package challenge

// Static pages for the verification code flow. Kept as plain strings:
// three fixed pages do not justify a template engine.

const pageStyle = `<style>
  body { font-family: sans-serif; max-width: 26em; margin: 4em auto; padding: 0 1em; }
  input[type=text] { font-size: 1.4em; width: 8em; letter-spacing: 0.2em; }
  button { font-size: 1.1em; padding: 0.3em 1.2em; }
  .error { color: #b00020; }
</style>`

const formPage = `<!DOCTYPE html>
<html>
<head><title>Halo Bridge Verification</title>` + pageStyle + `</head>
<body>
  <h1>Enter verification code</h1>
  <p>A login code has been sent to the phone number on your account.</p>
  <form action="/submitmfa" method="post">
    <input type="text" name="code" autocomplete="one-time-code" autofocus>
    <button type="submit">Verify</button>
  </form>
</body>
</html>`

const formPageWithError = `<!DOCTYPE html>
<html>
<head><title>Halo Bridge Verification</title>` + pageStyle + `</head>
<body>
  <h1>Enter verification code</h1>
  <p class="error">That code was not accepted. Try again.</p>
  <form action="/submitmfa" method="post">
    <input type="text" name="code" autocomplete="one-time-code" autofocus>
    <button type="submit">Verify</button>
  </form>
</body>
</html>`

const successPage = `<!DOCTYPE html>
<html>
<head><title>Halo Bridge Verification</title>` + pageStyle + `</head>
<body>
  <h1>Code verified</h1>
  <p>You are signed in. This page will stop working shortly; you can close it.</p>
</body>
</html>`
